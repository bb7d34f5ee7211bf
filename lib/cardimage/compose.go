// Package cardimage renders an extracted StatRecord onto the fixed
// card template, producing the final shareable png.
package cardimage

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"log/slog"

	"statcard-backend/lib/scrapers/faceitanalyser"
	"statcard-backend/lib/telemetry"

	"github.com/fogleman/gg"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = telemetry.Tracer("statcard.lib.cardimage")

// rendered for any field tagged unavailable
const placeholder = "—"

// fixed canvas layout, every field has one home and never moves
const (
	canvasWidth  = 1600
	canvasHeight = 820

	avatarX, avatarY, avatarSize = 50, 50, 150
	flagX, flagY                 = 220, 55
	flagWidth, flagHeight        = 60, 45
	levelX, levelY, levelSize    = 220, 110, 70

	nameX, nameY = 295, 55
	eloX, eloY   = 295, 120
	formX, formY = 295, 175
	formStep     = 30

	headerDividerY = 230

	blockWidth   = 350
	blockHeight  = 180
	blockStride  = 380
	blocksX      = 50
	maxBlocksRow = 4

	lifetimeTitleY  = 260
	lifetimeBlocksY = 315
	recentTitleY    = 535
	recentBlocksY   = 590
)

var (
	colorBackground = color.RGBA{30, 30, 30, 255}
	colorBlockFill  = color.RGBA{45, 45, 45, 255}
	colorBlockEdge  = color.RGBA{80, 80, 80, 255}
	colorDivider    = color.RGBA{100, 100, 100, 255}
	colorText       = color.RGBA{255, 255, 255, 255}
	colorMuted      = color.RGBA{200, 200, 200, 255}
	colorGood       = color.RGBA{214, 243, 148, 255}
	colorBad        = color.RGBA{230, 118, 118, 255}
	colorImageStub  = color.RGBA{100, 100, 100, 255}
)

type Composer struct {
	assets Assets
	images ImageSource
}

// NewComposer builds a composer over preloaded assets. `images` may
// be nil, in which case remote profile images render as flat stubs.
func NewComposer(assets Assets, images ImageSource) *Composer {
	return &Composer{
		assets: assets,
		images: images,
	}
}

// Compose renders the record to png bytes. The output is byte-stable
// for a given record and image source, nothing time- or
// randomness-dependent is drawn.
func (c *Composer) Compose(ctx context.Context, record faceitanalyser.StatRecord) ([]byte, error) {
	ctx, span := tracer.Start(ctx, "Compose")
	defer span.End()
	span.SetAttributes(attribute.String("nickname", record.Nickname))

	if c.assets.Fonts.Name == nil {
		span.SetStatus(codes.Error, "fonts not loaded")
		return nil, fmt.Errorf("%w: fonts not loaded", ErrTemplateMissing)
	}

	dc := gg.NewContext(canvasWidth, canvasHeight)
	if c.assets.Background != nil {
		dc.DrawImage(c.assets.Background, 0, 0)
	} else {
		dc.SetColor(colorBackground)
		dc.Clear()
	}

	c.drawProfileImages(ctx, dc, record)
	c.drawHeader(dc, record)
	c.drawSection(dc, "Lifetime stats", lifetimeTitleY, lifetimeBlocksY, record.Lifetime)
	c.drawSection(dc, "Last 50 matches", recentTitleY, recentBlocksY, record.Recent)

	var buf bytes.Buffer
	err := dc.EncodePNG(&buf)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "png encoding failed")
		return nil, fmt.Errorf("encode card png: %w", err)
	}
	return buf.Bytes(), nil
}

func (c *Composer) drawHeader(dc *gg.Context, record faceitanalyser.StatRecord) {
	dc.SetFontFace(c.assets.Fonts.Name)
	dc.SetColor(colorText)
	dc.DrawStringAnchored(record.Nickname, nameX, nameY, 0, 1)

	dc.SetFontFace(c.assets.Fonts.Elo)
	elo := placeholder
	if record.Elo.Available {
		elo = record.Elo.Raw + " ELO"
	}
	dc.DrawStringAnchored(elo, eloX, eloY, 0, 1)

	if record.RecentForm.Available {
		dc.SetFontFace(c.assets.Fonts.Section)
		for i, outcome := range record.RecentForm.Sequence {
			if outcome == "W" {
				dc.SetColor(colorGood)
			} else {
				dc.SetColor(colorBad)
			}
			dc.DrawStringAnchored(outcome, float64(formX+i*formStep), formY, 0, 1)
		}
	}

	dc.SetColor(colorDivider)
	dc.SetLineWidth(1)
	dc.DrawLine(40, headerDividerY, canvasWidth-40, headerDividerY)
	dc.Stroke()
}

func (c *Composer) drawProfileImages(ctx context.Context, dc *gg.Context, record faceitanalyser.StatRecord) {
	avatar := c.loadOrNil(ctx, record.AvatarUrl)
	if avatar != nil {
		dc.Push()
		dc.DrawCircle(avatarX+avatarSize/2, avatarY+avatarSize/2, avatarSize/2)
		dc.Clip()
		drawScaled(dc, avatar, avatarX, avatarY, avatarSize, avatarSize)
		dc.ResetClip()
		dc.Pop()
	} else {
		dc.SetColor(colorImageStub)
		dc.DrawCircle(avatarX+avatarSize/2, avatarY+avatarSize/2, avatarSize/2)
		dc.Fill()
	}

	flag := c.loadOrNil(ctx, record.FlagUrl)
	if flag != nil {
		drawScaled(dc, flag, flagX, flagY, flagWidth, flagHeight)
	} else {
		dc.SetColor(colorImageStub)
		dc.DrawRectangle(flagX, flagY, flagWidth, flagHeight)
		dc.Fill()
	}

	level := c.loadOrNil(ctx, record.LevelUrl)
	if level != nil {
		drawScaled(dc, level, levelX, levelY, levelSize, levelSize)
	} else {
		dc.SetColor(colorImageStub)
		dc.DrawRectangle(levelX, levelY, levelSize, levelSize)
		dc.Fill()
	}
}

func (c *Composer) loadOrNil(ctx context.Context, url string) image.Image {
	if url == "" || c.images == nil {
		return nil
	}
	img, err := c.images.Load(ctx, url)
	if err != nil {
		// a broken avatar is cosmetic, the stub renders instead
		slog.WarnContext(ctx, "failed to load profile image", "url", url, "err", err)
		return nil
	}
	return img
}

func (c *Composer) drawSection(dc *gg.Context, title string, titleY, blocksY float64, blocks []faceitanalyser.StatBlock) {
	dc.SetFontFace(c.assets.Fonts.Section)
	dc.SetColor(colorText)
	dc.DrawStringAnchored(title, blocksX, titleY, 0, 1)

	for i, block := range blocks {
		if i >= maxBlocksRow {
			break
		}
		c.drawBlock(dc, float64(blocksX+i*blockStride), blocksY, block)
	}
}

func (c *Composer) drawBlock(dc *gg.Context, x, y float64, block faceitanalyser.StatBlock) {
	dc.SetColor(colorBlockFill)
	dc.DrawRectangle(x, y, blockWidth, blockHeight)
	dc.Fill()
	dc.SetColor(colorBlockEdge)
	dc.SetLineWidth(2)
	dc.DrawRectangle(x, y, blockWidth, blockHeight)
	dc.Stroke()

	dc.SetFontFace(c.assets.Fonts.BlockTitle)
	dc.SetColor(colorText)
	dc.DrawStringAnchored(block.Title, x+blockWidth/2, y+15, 0.5, 1)

	dc.SetFontFace(c.assets.Fonts.BlockValue)
	if block.MainValue.Available {
		dc.SetColor(mainValueColor(block))
		dc.DrawStringAnchored(block.MainValue.Raw, x+blockWidth/2, y+50, 0.5, 1)
	} else {
		dc.SetColor(colorMuted)
		dc.DrawStringAnchored(placeholder, x+blockWidth/2, y+50, 0.5, 1)
	}

	dc.SetColor(colorDivider)
	dc.SetLineWidth(1)
	dc.DrawLine(x+20, y+85, x+blockWidth-20, y+85)
	dc.Stroke()

	dc.SetFontFace(c.assets.Fonts.ItemValue)
	for i, item := range block.Items {
		itemY := y + 95 + float64(i)*25
		if itemY > y+blockHeight-20 {
			break
		}
		dc.SetColor(colorMuted)
		dc.DrawStringAnchored(item.Title, x+20, itemY, 0, 1)
		dc.SetColor(colorText)
		dc.DrawStringAnchored(item.Value, x+blockWidth-20, itemY, 1, 1)
	}
}

// low ratings and low winrates render in the warning color
func mainValueColor(block faceitanalyser.StatBlock) color.Color {
	switch block.Title {
	case "Avg. KDR", "FA Rating":
		if block.MainValue.Value < 1 {
			return colorBad
		}
	case "Winrate":
		if block.MainValue.Value < 50 {
			return colorBad
		}
	}
	return colorGood
}

func drawScaled(dc *gg.Context, img image.Image, x, y, width, height float64) {
	bounds := img.Bounds()
	if bounds.Dx() == 0 || bounds.Dy() == 0 {
		return
	}
	dc.Push()
	dc.Translate(x, y)
	dc.Scale(width/float64(bounds.Dx()), height/float64(bounds.Dy()))
	dc.DrawImage(img, 0, 0)
	dc.Pop()
}
