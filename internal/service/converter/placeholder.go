package converter

import "github.com/aliskhannn/jpg-converter/internal/preview"

const placeholderSVG = `<svg xmlns="http://www.w3.org/2000/svg" width="64" height="64" viewBox="0 0 64 64">` +
	`<rect width="64" height="64" rx="8" fill="#e2e8f0"/>` +
	`<path d="M14 46l12-14 9 10 6-7 9 11z" fill="#94a3b8"/>` +
	`<circle cx="42" cy="22" r="5" fill="#94a3b8"/></svg>`

// placeholderPreview is shown for formats that cannot be previewed directly.
var placeholderPreview = preview.Resource{ContentType: "image/svg+xml", Data: []byte(placeholderSVG)}
