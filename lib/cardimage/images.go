package cardimage

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"net/url"
	"strings"
	"time"

	"statcard-backend/lib/restyutil"
	"statcard-backend/lib/telemetry"

	"github.com/go-resty/resty/v2"
	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"

	_ "image/jpeg"
	_ "image/png"
)

// ImageSource loads the profile's remote images (avatar, flag, level
// badge). It sits behind an interface so compose tests stay
// deterministic and offline.
type ImageSource interface {
	Load(ctx context.Context, url string) (image.Image, error)
}

type RestyImageSource struct {
	client *resty.Client
}

func NewRestyImageSource() *RestyImageSource {
	client := resty.New().
		SetTimeout(time.Second*10).
		SetHeader("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36")
	restyutil.InstrumentClient(client, telemetry.Tracer("statcard.lib.cardimage"))
	return &RestyImageSource{client: client}
}

func (s *RestyImageSource) Load(ctx context.Context, link string) (image.Image, error) {
	res, err := s.client.R().SetContext(ctx).Get(link)
	if err != nil {
		return nil, err
	}
	if res.IsError() {
		return nil, fmt.Errorf("load image %s: status %d", link, res.StatusCode())
	}

	// the avatar comes off a cdn as jpeg/png, but the flag and level
	// badges are site-local svg files the stdlib decoders do not cover
	if isSvg(res.Header().Get("Content-Type"), link) {
		img, err := rasterizeSvg(res.Body())
		if err != nil {
			return nil, fmt.Errorf("rasterize svg %s: %w", link, err)
		}
		return img, nil
	}

	img, _, err := image.Decode(bytes.NewReader(res.Body()))
	if err != nil {
		return nil, fmt.Errorf("decode image %s: %w", link, err)
	}
	return img, nil
}

func isSvg(contentType, link string) bool {
	if strings.Contains(contentType, "svg") {
		return true
	}
	parsed, err := url.Parse(link)
	if err != nil {
		return false
	}
	return strings.HasSuffix(strings.ToLower(parsed.Path), ".svg")
}

func rasterizeSvg(raw []byte) (image.Image, error) {
	icon, err := oksvg.ReadIconStream(bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}

	width := int(icon.ViewBox.W)
	height := int(icon.ViewBox.H)
	if width <= 0 || height <= 0 {
		width, height = 64, 64
	}

	icon.SetTarget(0, 0, float64(width), float64(height))
	out := image.NewRGBA(image.Rect(0, 0, width, height))
	scanner := rasterx.NewScannerGV(width, height, out, out.Bounds())
	icon.Draw(rasterx.NewDasher(width, height, scanner), 1)
	return out, nil
}
