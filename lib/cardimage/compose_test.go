package cardimage

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"testing"

	"statcard-backend/lib/scrapers/faceitanalyser"

	"github.com/stretchr/testify/require"
	"golang.org/x/image/font/basicfont"
)

func testAssets() Assets {
	face := basicfont.Face7x13
	return Assets{
		Fonts: Fonts{
			Name:       face,
			Elo:        face,
			Section:    face,
			BlockTitle: face,
			BlockValue: face,
			ItemValue:  face,
		},
	}
}

type solidImageSource struct{}

func (solidImageSource) Load(ctx context.Context, url string) (image.Image, error) {
	img := image.NewRGBA(image.Rect(0, 0, 10, 10))
	for y := 0; y < 10; y++ {
		for x := 0; x < 10; x++ {
			img.Set(x, y, color.RGBA{40, 90, 160, 255})
		}
	}
	return img, nil
}

func testRecord() faceitanalyser.StatRecord {
	return faceitanalyser.StatRecord{
		Nickname: "proplayer1",
		Elo:      faceitanalyser.Field{Raw: "2,145", Value: 2145, Available: true},
		Matches:  faceitanalyser.Field{Raw: "500", Value: 500, Available: true},
		Rating:   faceitanalyser.Field{Raw: "2,10", Value: 2.10, Available: true},
		WinRate:  faceitanalyser.Field{Raw: "55%", Value: 55, Available: true},
		RecentForm: faceitanalyser.Form{
			Sequence:  []string{"W", "L", "W"},
			Available: true,
		},
		AvatarUrl: "https://assets.faceit-cdn.net/avatars/proplayer1.jpg",
		Lifetime: []faceitanalyser.StatBlock{
			{
				Title:     "Matches",
				MainValue: faceitanalyser.Field{Raw: "500", Value: 500, Available: true},
				Items: []faceitanalyser.StatBlockItem{
					{Title: "Wins", Value: "275"},
					{Title: "Losses", Value: "225"},
				},
			},
			{
				Title:     "FA Rating",
				MainValue: faceitanalyser.Field{Raw: "2,10", Value: 2.10, Available: true},
			},
			{
				Title:     "Avg. Kills",
				MainValue: faceitanalyser.Field{Raw: "0,74", Value: 0.74, Available: true},
			},
		},
		Recent: []faceitanalyser.StatBlock{
			{
				Title:     "Winrate",
				MainValue: faceitanalyser.Field{Raw: "42%", Value: 42, Available: true},
			},
		},
	}
}

func TestComposeIdempotent(t *testing.T) {
	composer := NewComposer(testAssets(), solidImageSource{})
	record := testRecord()

	first, err := composer.Compose(context.Background(), record)
	require.NoError(t, err)
	second, err := composer.Compose(context.Background(), record)
	require.NoError(t, err)

	require.True(t, bytes.Equal(first, second), "compose must be byte-stable for identical records")
}

func TestComposeOutputShape(t *testing.T) {
	composer := NewComposer(testAssets(), solidImageSource{})

	out, err := composer.Compose(context.Background(), testRecord())
	require.NoError(t, err)

	decoded, err := png.Decode(bytes.NewReader(out))
	require.NoError(t, err)
	require.Equal(t, canvasWidth, decoded.Bounds().Dx())
	require.Equal(t, canvasHeight, decoded.Bounds().Dy())
}

func TestComposePlaceholderSubstitution(t *testing.T) {
	composer := NewComposer(testAssets(), solidImageSource{})
	ctx := context.Background()

	available := testRecord()
	unavailable := testRecord()
	// the third lifetime block loses its main value
	unavailable.Lifetime[2].MainValue = faceitanalyser.Field{}

	availableOut, err := composer.Compose(ctx, available)
	require.NoError(t, err)
	unavailableOut, err := composer.Compose(ctx, unavailable)
	require.NoError(t, err)
	require.False(t, bytes.Equal(availableOut, unavailableOut))

	availableImg, err := png.Decode(bytes.NewReader(availableOut))
	require.NoError(t, err)
	unavailableImg, err := png.Decode(bytes.NewReader(unavailableOut))
	require.NoError(t, err)

	// the placeholder may only change pixels inside the block that
	// lost its value, everything else on the card stays untouched
	changed := image.Rect(
		blocksX+2*blockStride,
		lifetimeBlocksY,
		blocksX+2*blockStride+blockWidth,
		lifetimeBlocksY+blockHeight,
	)
	bounds := availableImg.Bounds()
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			if image.Pt(x, y).In(changed) {
				continue
			}
			require.Equal(
				t,
				availableImg.At(x, y),
				unavailableImg.At(x, y),
				"pixel outside the unavailable block changed at (%d, %d)", x, y,
			)
		}
	}
}

func TestComposeWithoutFonts(t *testing.T) {
	composer := NewComposer(Assets{}, nil)
	_, err := composer.Compose(context.Background(), testRecord())
	require.ErrorIs(t, err, ErrTemplateMissing)
}

func TestLoadAssetsMissingTemplate(t *testing.T) {
	_, err := LoadAssets(t.TempDir())
	require.ErrorIs(t, err, ErrTemplateMissing)
}
