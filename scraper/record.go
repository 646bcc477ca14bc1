package scraper

import (
	"context"

	"github.com/use-agent/stylegrab/engine"
	"github.com/use-agent/stylegrab/models"
)

// BuildResult is one built record together with the outcome of its optional
// blocks. Record.Image and Record.Pointer are set only for present blocks.
type BuildResult struct {
	Record  models.ElementRecord
	Image   models.Block[models.ImageAttributes]
	Pointer models.Block[models.PointerAttributes]
}

// Build assembles the record for one root element. A failure reading the
// root itself is returned as an error; failures in the image or pointer
// block only make that block Absent.
//
// Only the first matching descendant of each kind is captured.
func Build(ctx context.Context, sess engine.Session, root engine.Node, index int) (BuildResult, error) {
	main, err := buildMain(ctx, sess, root)
	if err != nil {
		return BuildResult{}, err
	}

	res := BuildResult{
		Record:  models.ElementRecord{Index: index, Main: main},
		Image:   buildImage(ctx, sess, root),
		Pointer: buildPointer(ctx, sess, root),
	}
	res.Record.Image = res.Image.Ptr()
	res.Record.Pointer = res.Pointer.Ptr()
	return res, nil
}

func buildMain(ctx context.Context, sess engine.Session, root engine.Node) (models.MainAttributes, error) {
	classes, err := sess.Attribute(ctx, root, "class")
	if err != nil {
		return models.MainAttributes{}, categorizeError(err, models.ErrCodeStyleEvaluation, "failed to read main element class")
	}
	testID, err := sess.Attribute(ctx, root, "data-testid")
	if err != nil {
		return models.MainAttributes{}, categorizeError(err, models.ErrCodeStyleEvaluation, "failed to read main element data-testid")
	}
	style, err := Snapshot(ctx, sess, root, MainStyleProperties)
	if err != nil {
		return models.MainAttributes{}, err
	}
	return models.MainAttributes{
		Tag:     RootTag,
		Classes: classes,
		TestID:  testID,
		Style:   style,
	}, nil
}

func buildImage(ctx context.Context, sess engine.Session, root engine.Node) models.Block[models.ImageAttributes] {
	img, err := sess.FindFirst(ctx, root, ImageSelector)
	if err != nil {
		return models.Absent[models.ImageAttributes](categorizeError(err, models.ErrCodeSubElementNotFound, "no image element found"))
	}

	attrs, err := readAttributes(ctx, sess, img, "src", "class", "style", "data-testid")
	if err != nil {
		return models.Absent[models.ImageAttributes](err)
	}
	style, err := Snapshot(ctx, sess, img, ImageStyleProperties)
	if err != nil {
		return models.Absent[models.ImageAttributes](err)
	}
	return models.Present(models.ImageAttributes{
		Src:         attrs[0],
		Class:       attrs[1],
		InlineStyle: attrs[2],
		TestID:      attrs[3],
		Style:       style,
	})
}

func buildPointer(ctx context.Context, sess engine.Session, root engine.Node) models.Block[models.PointerAttributes] {
	ptr, err := sess.FindFirst(ctx, root, PointerSelector)
	if err != nil {
		return models.Absent[models.PointerAttributes](categorizeError(err, models.ErrCodeSubElementNotFound, "no pointer element found"))
	}

	attrs, err := readAttributes(ctx, sess, ptr, "class", "style", "data-testid")
	if err != nil {
		return models.Absent[models.PointerAttributes](err)
	}
	style, err := Snapshot(ctx, sess, ptr, PointerStyleProperties)
	if err != nil {
		return models.Absent[models.PointerAttributes](err)
	}
	return models.Present(models.PointerAttributes{
		Class:       attrs[0],
		InlineStyle: attrs[1],
		TestID:      attrs[2],
		Style:       style,
	})
}

// readAttributes reads names in order; a nil entry means the attribute is unset.
func readAttributes(ctx context.Context, sess engine.Session, node engine.Node, names ...string) ([]*string, error) {
	out := make([]*string, len(names))
	for i, name := range names {
		v, err := sess.Attribute(ctx, node, name)
		if err != nil {
			return nil, categorizeError(err, models.ErrCodeStyleEvaluation, "failed to read attribute "+name)
		}
		out[i] = v
	}
	return out, nil
}
