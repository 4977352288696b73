// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package kernel

import (
	"encoding/base64"
	"fmt"
	"math"
	"strings"

	"github.com/grailbio/bigjob"
)

var defaultViewport = map[string]interface{}{"x": 0, "y": 0, "width": 800, "height": 600}

// renderFrame draws the scene objects into an SVG frame. The amount of
// shading work scales with the number of objects and the viewport area.
func renderFrame(p bigjob.Payload, dev *bigjob.Device) (*bigjob.Result, error) {
	viewport := p.Object("viewport", defaultViewport)
	vp := bigjob.Payload(viewport)
	width, height := vp.Int("width", 800), vp.Int("height", 600)
	if width < 1 || height < 1 || width > maxViewport || height > maxViewport {
		return nil, bigjob.Errorf(bigjob.InvalidInput,
			"Invalid payload: viewport must be between 1x1 and %dx%d, got %dx%d", maxViewport, maxViewport, width, height)
	}
	objects := p.List("objects", nil)
	if work := int64(len(objects)) * int64(width) * int64(height); work > maxRenderWork {
		return nil, bigjob.Errorf(bigjob.InvalidInput,
			"Invalid payload: %d objects at %dx%d exceed the render budget", len(objects), width, height)
	}
	quality := p.Text("quality", "medium")

	complexity := len(objects) * width * height / 1000
	dev.Split(complexity, func(_, lo, hi int) error {
		spin(lo, hi, func(x float64) float64 { return math.Sin(x)*math.Cos(x) + math.Sqrt(x+1) })
		return nil
	})
	svg := drawSVG(objects, width, height)
	if err := dev.Sync(); err != nil {
		return nil, err
	}
	return bigjob.NewResult("Frame rendered successfully").
		Set("frameData", "data:image/svg+xml;base64,"+base64.StdEncoding.EncodeToString([]byte(svg))).
		Set("viewport", viewport).
		Set("objectsRendered", len(objects)).
		Set("quality", quality).
		Set("resolution", fmt.Sprintf("%dx%d", width, height)).
		Set("renderer", "svg").
		Set(bigjob.ValueKey, len(objects)), nil
}

// drawSVG renders objects centered in a width by height frame. Object
// types other than cube, sphere and triangle are skipped.
func drawSVG(objects []interface{}, width, height int) string {
	var b strings.Builder
	fmt.Fprintf(&b, `<svg width="%d" height="%d" xmlns="http://www.w3.org/2000/svg">`, width, height)
	b.WriteString(`<rect width="100%" height="100%" fill="#000011"/>`)
	for _, o := range objects {
		m, ok := o.(map[string]interface{})
		if !ok {
			continue
		}
		obj := bigjob.Payload(m)
		pos := bigjob.Payload(obj.Object("position", nil))
		size := bigjob.Payload(obj.Object("size", nil))
		color := bigjob.Payload(obj.Object("color", nil))
		x := pos.Int("x", 0) + width/2
		y := pos.Int("y", 0) + height/2
		w, h := size.Int("width", 50), size.Int("height", 50)
		fill := fmt.Sprintf("rgb(%d,%d,%d)",
			channel(color.Float("r", 1)), channel(color.Float("g", 1)), channel(color.Float("b", 1)))
		const stroke = `stroke="white" stroke-width="1"`
		b.WriteByte('\n')
		switch obj.Text("type", "cube") {
		case "cube":
			fmt.Fprintf(&b, `<rect x="%d" y="%d" width="%d" height="%d" fill="%s" %s/>`,
				x-w/2, y-h/2, w, h, fill, stroke)
		case "sphere":
			r := w
			if h < r {
				r = h
			}
			fmt.Fprintf(&b, `<circle cx="%d" cy="%d" r="%d" fill="%s" %s/>`, x, y, r/2, fill, stroke)
		case "triangle":
			fmt.Fprintf(&b, `<polygon points="%d,%d %d,%d %d,%d" fill="%s" %s/>`,
				x, y-h/2, x-w/2, y+h/2, x+w/2, y+h/2, fill, stroke)
		}
	}
	b.WriteString("\n</svg>")
	return b.String()
}

func channel(v float64) int {
	return int(math.Max(0, math.Min(1, v)) * 255)
}
