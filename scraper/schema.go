package scraper

// Selectors for the element family this scraper understands.
const (
	RootSelector    = `div[data-testid="draggable-screenshot-image"]`
	ImageSelector   = "img"
	PointerSelector = `div[data-testid="action-click-target"]`

	// RootTag is reported verbatim in every main block.
	RootTag = "div"
)

// Computed style properties captured per block, in output order.
var (
	MainStyleProperties = []string{
		"position",
		"display",
		"alignItems",
		"justifyContent",
		"backgroundColor",
		"width",
		"height",
	}

	ImageStyleProperties = []string{
		"position",
		"display",
		"transform",
		"transition",
		"cursor",
		"borderRadius",
		"width",
		"height",
	}

	PointerStyleProperties = []string{
		"position",
		"pointerEvents",
		"overflow",
		"borderRadius",
		"borderWidth",
		"borderColor",
		"backgroundColor",
		"transition",
		"transform",
		"width",
		"height",
		"left",
		"top",
	}
)

// Block names used in warnings.
const (
	BlockMain    = "main_div"
	BlockImage   = "image"
	BlockPointer = "pointer"
)
