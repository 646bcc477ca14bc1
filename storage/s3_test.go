package storage

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/use-agent/stylegrab/config"
	"github.com/use-agent/stylegrab/models"
)

type fakePutter struct {
	mu      sync.Mutex
	objects map[string]string
	types   map[string]string
	err     error
}

func (f *fakePutter) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	body, _ := io.ReadAll(in.Body)
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.objects == nil {
		f.objects = map[string]string{}
		f.types = map[string]string{}
	}
	f.objects[*in.Bucket+"/"+*in.Key] = string(body)
	f.types[*in.Key] = *in.ContentType
	return &s3.PutObjectOutput{}, nil
}

func testArchive(p objectPutter, endpoint string) *Archive {
	a := newArchive(p, config.StorageConfig{
		Bucket:    "shots",
		Region:    "eu-west-1",
		KeyPrefix: "stylegrab",
		Endpoint:  endpoint,
	}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	a.now = func() time.Time { return time.Unix(1700000000, 0) }
	return a
}

func TestArchive_Save(t *testing.T) {
	p := &fakePutter{}
	a := testArchive(p, "")
	res := &models.ScrapeResult{
		URL: "https://example.com",
		Records: []models.ElementRecord{{
			Index: 1,
			Main:  models.MainAttributes{Tag: "div", Style: models.StyleSnapshot{"display": "flex"}},
		}},
	}

	info, err := a.Save(context.Background(), res)
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	// sha256("https://example.com")
	const hash = "100680ad546ce6a577f42f52df33b4cfdca756859e664b8d7de329b150d09ce9"
	wantPrefix := "https://shots.s3.eu-west-1.amazonaws.com/stylegrab/" + hash + "/1700000000/"
	if info.JSON != wantPrefix+"scraped_elements.json" {
		t.Errorf("JSON url = %q", info.JSON)
	}
	if info.CSV != wantPrefix+"scraped_elements.csv" {
		t.Errorf("CSV url = %q", info.CSV)
	}

	if len(p.objects) != 2 {
		t.Fatalf("uploaded %d objects, want 2", len(p.objects))
	}
	jsonObj := p.objects["shots/stylegrab/"+hash+"/1700000000/scraped_elements.json"]
	if !strings.Contains(jsonObj, `"element_index": 1`) {
		t.Errorf("json object = %q", jsonObj)
	}
	csvObj := p.objects["shots/stylegrab/"+hash+"/1700000000/scraped_elements.csv"]
	if !strings.HasPrefix(csvObj, "element_index,") {
		t.Errorf("csv object = %q", csvObj)
	}
	if p.types["stylegrab/"+hash+"/1700000000/scraped_elements.csv"] != "text/csv" {
		t.Errorf("content types = %v", p.types)
	}
}

func TestArchive_CustomEndpointURL(t *testing.T) {
	a := testArchive(&fakePutter{}, "http://localhost:9000")
	info, err := a.Save(context.Background(), &models.ScrapeResult{URL: "https://example.com"})
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if !strings.HasPrefix(info.JSON, "http://localhost:9000/shots/stylegrab/") {
		t.Errorf("JSON url = %q", info.JSON)
	}
}

func TestArchive_PutError(t *testing.T) {
	a := testArchive(&fakePutter{err: errors.New("denied")}, "")
	if _, err := a.Save(context.Background(), &models.ScrapeResult{URL: "u"}); err == nil {
		t.Fatal("expected error")
	}
}
