package formdef

import (
	"fmt"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"

	"github.com/gltn/stdm/pkg/control"
)

// HCL layout of a definition file:
//
//	form "spatial_unit" {
//	  entity = "spatial_unit"
//	  title  = "Spatial Unit"
//
//	  field "code" {
//	    control   = "line_edit"
//	    mandatory = true
//	  }
//	  field "notes" {
//	    control         = "text_edit"
//	    bindControlOnly = true
//	  }
//	  field "land_use" {
//	    control = "combo_box"
//	    option "Residential" { value = "residential" }
//	  }
//	}
type hclFile struct {
	Forms []hclForm `hcl:"form,block"`
}

type hclForm struct {
	Name   string     `hcl:"name,label"`
	Entity string     `hcl:"entity"`
	Title  string     `hcl:"title,optional"`
	Fields []hclField `hcl:"field,block"`
}

type hclField struct {
	Attribute       string      `hcl:"attribute,label"`
	Control         string      `hcl:"control"`
	Label           string      `hcl:"label,optional"`
	Mandatory       bool        `hcl:"mandatory,optional"`
	BindControlOnly bool        `hcl:"bindControlOnly,optional"`
	Preload         string      `hcl:"preload,optional"`
	Minimum         *float64    `hcl:"minimum,optional"`
	Maximum         *float64    `hcl:"maximum,optional"`
	Options         []hclOption `hcl:"option,block"`
}

type hclOption struct {
	Text  string    `hcl:"text,label"`
	Value cty.Value `hcl:"value"`
}

func decodeHCL(filename string, data []byte) (*File, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(data, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("parse HCL: %s", diags.Error())
	}
	var raw hclFile
	if diags := gohcl.DecodeBody(file.Body, nil, &raw); diags.HasErrors() {
		return nil, fmt.Errorf("decode HCL: %s", diags.Error())
	}

	out := &File{Forms: make([]Definition, 0, len(raw.Forms))}
	for _, rf := range raw.Forms {
		d := Definition{Name: rf.Name, Entity: rf.Entity, Title: rf.Title}
		for _, fd := range rf.Fields {
			field := Field{
				Attribute:       fd.Attribute,
				Control:         control.Kind(fd.Control),
				Label:           fd.Label,
				Mandatory:       fd.Mandatory,
				BindControlOnly: fd.BindControlOnly,
				Preload:         fd.Preload,
				Minimum:         fd.Minimum,
				Maximum:         fd.Maximum,
			}
			for _, o := range fd.Options {
				v, err := fromCty(o.Value)
				if err != nil {
					return nil, fmt.Errorf("form %q field %q option %q: %w", rf.Name, fd.Attribute, o.Text, err)
				}
				field.Options = append(field.Options, Option{Text: o.Text, Value: v})
			}
			d.Fields = append(d.Fields, field)
		}
		out.Forms = append(out.Forms, d)
	}
	return out, nil
}

// fromCty converts a primitive HCL value to the Go type a YAML decoder would
// produce for the same literal.
func fromCty(v cty.Value) (any, error) {
	if v.IsNull() {
		return nil, nil
	}
	if !v.IsWhollyKnown() {
		return nil, fmt.Errorf("value is not known")
	}
	switch v.Type() {
	case cty.String:
		return v.AsString(), nil
	case cty.Bool:
		return v.True(), nil
	case cty.Number:
		bf := v.AsBigFloat()
		if bf.IsInt() {
			if i, acc := bf.Int64(); acc == 0 {
				return int(i), nil
			}
		}
		f, _ := bf.Float64()
		return f, nil
	}
	return nil, fmt.Errorf("unsupported value type %s", v.Type().FriendlyName())
}
