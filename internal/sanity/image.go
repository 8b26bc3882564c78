package sanity

import (
	"errors"
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"

	"github.com/heriman22/blog-main/internal/xerrors"
)

const imageCDN = "https://cdn.sanity.io"

var (
	ErrNoImage         = errors.New("image source has no asset")
	ErrInvalidImageRef = errors.New("invalid image asset reference")
)

// ImageSource is the image field as stored on a document.
type ImageSource struct {
	Asset   *AssetRef  `json:"asset,omitempty"`
	Crop    *ImageCrop `json:"crop,omitempty"`
	Alt     string     `json:"alt,omitempty"`
	Caption string     `json:"caption,omitempty"`
}

// AssetRef is either a reference (_ref), an expanded asset (_id) or a bare url.
type AssetRef struct {
	Ref string `json:"_ref,omitempty"`
	ID  string `json:"_id,omitempty"`
	URL string `json:"url,omitempty"`
}

// ImageCrop holds fractions of the original dimensions to cut from each side.
type ImageCrop struct {
	Top    float64 `json:"top"`
	Bottom float64 `json:"bottom"`
	Left   float64 `json:"left"`
	Right  float64 `json:"right"`
}

type ImageOptions struct {
	Width  int
	Height int
}

// parsedRef is image-<id>-<w>x<h>-<format>.
type parsedRef struct {
	id     string
	width  int
	height int
	format string
}

func parseImageRef(ref string) (parsedRef, error) {
	parts := strings.Split(ref, "-")
	if len(parts) != 4 || parts[0] != "image" || parts[1] == "" || parts[3] == "" {
		return parsedRef{}, fmt.Errorf("%w: %q", ErrInvalidImageRef, ref)
	}
	w, h, ok := strings.Cut(parts[2], "x")
	if !ok {
		return parsedRef{}, fmt.Errorf("%w: %q", ErrInvalidImageRef, ref)
	}
	wi, errW := strconv.Atoi(w)
	hi, errH := strconv.Atoi(h)
	if errW != nil || errH != nil || wi <= 0 || hi <= 0 {
		return parsedRef{}, fmt.Errorf("%w: %q", ErrInvalidImageRef, ref)
	}
	return parsedRef{id: parts[1], width: wi, height: hi, format: parts[3]}, nil
}

// ImageBuilder turns image sources into CDN urls for one project/dataset.
type ImageBuilder struct {
	projectID string
	dataset   string
}

func NewImageBuilder(projectID, dataset string) *ImageBuilder {
	return &ImageBuilder{projectID: projectID, dataset: dataset}
}

// URL returns the sized CDN url for src. The crop, when present and not a
// no-op, becomes a rect in source pixels.
func (b *ImageBuilder) URL(src *ImageSource, opts ImageOptions) (string, error) {
	if b == nil || b.projectID == "" || b.dataset == "" {
		return "", xerrors.New("image builder requires project id and dataset")
	}
	if src == nil || src.Asset == nil {
		return "", xerrors.WithStack(ErrNoImage)
	}

	ref := src.Asset.Ref
	if ref == "" {
		ref = src.Asset.ID
	}
	if ref == "" {
		if src.Asset.URL == "" {
			return "", xerrors.WithStack(ErrNoImage)
		}
		return withSize(src.Asset.URL, opts)
	}

	p, err := parseImageRef(ref)
	if err != nil {
		return "", xerrors.WithStack(err)
	}

	q := url.Values{}
	if rect, ok := cropRect(src.Crop, p.width, p.height); ok {
		q.Set("rect", rect)
	}
	setSize(q, opts)

	u := fmt.Sprintf("%s/images/%s/%s/%s-%dx%d.%s", imageCDN,
		url.PathEscape(b.projectID), url.PathEscape(b.dataset), p.id, p.width, p.height, p.format)
	if len(q) > 0 {
		// keep rect,w,h,fit in a stable readable order
		u += "?" + encodeOrdered(q, "rect", "w", "h", "fit")
	}
	return u, nil
}

func setSize(q url.Values, opts ImageOptions) {
	if opts.Width > 0 {
		q.Set("w", strconv.Itoa(opts.Width))
	}
	if opts.Height > 0 {
		q.Set("h", strconv.Itoa(opts.Height))
	}
	if opts.Width > 0 && opts.Height > 0 {
		q.Set("fit", "crop")
	}
}

func withSize(raw string, opts ImageOptions) (string, error) {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "", xerrors.Newf("%w: asset url %q", ErrInvalidImageRef, raw)
	}
	q := u.Query()
	setSize(q, opts)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func cropRect(c *ImageCrop, width, height int) (string, bool) {
	if c == nil {
		return "", false
	}
	left := int(math.Round(c.Left * float64(width)))
	top := int(math.Round(c.Top * float64(height)))
	w := int(math.Round(float64(width)-c.Right*float64(width))) - left
	h := int(math.Round(float64(height)-c.Bottom*float64(height))) - top
	if w <= 0 || h <= 0 {
		return "", false
	}
	if left == 0 && top == 0 && w == width && h == height {
		return "", false
	}
	return fmt.Sprintf("%d,%d,%d,%d", left, top, w, h), true
}

func encodeOrdered(q url.Values, order ...string) string {
	var parts []string
	for _, k := range order {
		if v := q.Get(k); v != "" {
			// values are digits, commas or a keyword
			parts = append(parts, k+"="+v)
		}
	}
	return strings.Join(parts, "&")
}
