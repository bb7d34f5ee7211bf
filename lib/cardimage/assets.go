package cardimage

import (
	"errors"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"

	"golang.org/x/image/font"
	"golang.org/x/image/font/opentype"
)

// the background template or a font file cannot be loaded. fatal to
// the request, this is a deployment problem rather than a player or
// site problem.
var ErrTemplateMissing = errors.New("cardimage: template asset missing")

// Fonts holds one face per text role on the card.
type Fonts struct {
	Name       font.Face
	Elo        font.Face
	Section    font.Face
	BlockTitle font.Face
	BlockValue font.Face
	ItemValue  font.Face
}

type Assets struct {
	Background image.Image
	Fonts      Fonts
}

// LoadAssets reads the fixed card template from an asset directory:
// template.png plus the medium and bold Montserrat faces.
func LoadAssets(dir string) (Assets, error) {
	background, err := loadPng(filepath.Join(dir, "template.png"))
	if err != nil {
		return Assets{}, err
	}

	bold, err := loadFont(filepath.Join(dir, "Montserrat-Bold.ttf"))
	if err != nil {
		return Assets{}, err
	}
	medium, err := loadFont(filepath.Join(dir, "Montserrat-Medium.ttf"))
	if err != nil {
		return Assets{}, err
	}

	fonts, err := makeFaces(bold, medium)
	if err != nil {
		return Assets{}, err
	}

	return Assets{
		Background: background,
		Fonts:      fonts,
	}, nil
}

func makeFaces(bold, medium *opentype.Font) (Fonts, error) {
	sized := func(f *opentype.Font, size float64) (font.Face, error) {
		return opentype.NewFace(f, &opentype.FaceOptions{
			Size:    size,
			DPI:     72,
			Hinting: font.HintingFull,
		})
	}

	var fonts Fonts
	var err error
	if fonts.Name, err = sized(bold, 40); err != nil {
		return Fonts{}, err
	}
	if fonts.Elo, err = sized(medium, 36); err != nil {
		return Fonts{}, err
	}
	if fonts.Section, err = sized(bold, 32); err != nil {
		return Fonts{}, err
	}
	if fonts.BlockTitle, err = sized(bold, 28); err != nil {
		return Fonts{}, err
	}
	if fonts.BlockValue, err = sized(bold, 24); err != nil {
		return Fonts{}, err
	}
	if fonts.ItemValue, err = sized(medium, 22); err != nil {
		return Fonts{}, err
	}
	return fonts, nil
}

func loadPng(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrTemplateMissing, path, err)
	}
	defer f.Close()

	img, err := png.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrTemplateMissing, path, err)
	}
	return img, nil
}

func loadFont(path string) (*opentype.Font, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrTemplateMissing, path, err)
	}
	parsed, err := opentype.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrTemplateMissing, path, err)
	}
	return parsed, nil
}
