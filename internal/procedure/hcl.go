package procedure

import (
	"fmt"
	"math/big"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"

	"github.com/shaiso/ndo/internal/domain"
)

// HCL форма определения:
//
//	procedure "wobble" {
//	  description = "wiggle the box, then blink"
//	  params      = ["box"]
//
//	  step "wiggle" {
//	    type   = "run"
//	    config = { procedure = "wiggle", args = ["{{ .Args.box }}"] }
//	  }
//
//	  step "both" {
//	    type = "parallel"
//	    branch "left" {
//	      step "pause" {
//	        type   = "delay"
//	        config = { duration_ms = 100 }
//	      }
//	    }
//	  }
//	}
//
// Шаблоны {{ ... }} в строках HCL не интерпретируются (синтаксис HCL — ${ ... }).

type hclRoot struct {
	Procedures []*hclProcedure `hcl:"procedure,block"`
}

type hclProcedure struct {
	Name        string     `hcl:"name,label"`
	Description string     `hcl:"description,optional"`
	Params      []string   `hcl:"params,optional"`
	Steps       []*hclStep `hcl:"step,block"`
}

type hclStep struct {
	ID         string       `hcl:"id,label"`
	Type       string       `hcl:"type"`
	Condition  string       `hcl:"condition,optional"`
	TimeoutSec int          `hcl:"timeout_sec,optional"`
	Config     *cty.Value   `hcl:"config,optional"`
	Branches   []*hclBranch `hcl:"branch,block"`
}

type hclBranch struct {
	ID    string     `hcl:"id,label"`
	Steps []*hclStep `hcl:"step,block"`
}

func parseHCL(data []byte, filename string) ([]*domain.ProcedureDef, error) {
	parser := hclparse.NewParser()

	file, diags := parser.ParseHCL(data, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("%w: %s: %s", ErrParse, filename, diags.Error())
	}

	var root hclRoot
	diags = gohcl.DecodeBody(file.Body, nil, &root)
	if diags.HasErrors() {
		return nil, fmt.Errorf("%w: %s: %s", ErrParse, filename, diags.Error())
	}

	defs := make([]*domain.ProcedureDef, 0, len(root.Procedures))
	for _, p := range root.Procedures {
		steps, err := translateSteps(p.Steps)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: procedure %s: %v", ErrParse, filename, p.Name, err)
		}
		defs = append(defs, &domain.ProcedureDef{
			Name:        p.Name,
			Description: p.Description,
			Params:      p.Params,
			Steps:       steps,
		})
	}
	return defs, nil
}

func translateSteps(in []*hclStep) ([]domain.StepDef, error) {
	out := make([]domain.StepDef, 0, len(in))
	for _, s := range in {
		step := domain.StepDef{
			ID:         s.ID,
			Type:       s.Type,
			Condition:  s.Condition,
			TimeoutSec: s.TimeoutSec,
		}

		if s.Config != nil {
			raw, err := ctyToGo(*s.Config)
			if err != nil {
				return nil, fmt.Errorf("step %s: %w", s.ID, err)
			}
			if raw != nil {
				config, ok := raw.(map[string]any)
				if !ok {
					return nil, fmt.Errorf("step %s: config must be an object", s.ID)
				}
				step.Config = config
			}
		}

		for _, b := range s.Branches {
			branchSteps, err := translateSteps(b.Steps)
			if err != nil {
				return nil, err
			}
			step.Branches = append(step.Branches, domain.Branch{ID: b.ID, Steps: branchSteps})
		}

		out = append(out, step)
	}
	return out, nil
}

// ctyToGo переводит cty.Value в обычные Go значения.
// Целые числа становятся int64, дробные — float64.
func ctyToGo(val cty.Value) (any, error) {
	if !val.IsKnown() || val.IsNull() {
		return nil, nil
	}

	ty := val.Type()
	switch {
	case ty == cty.String:
		return val.AsString(), nil

	case ty == cty.Number:
		bf := val.AsBigFloat()
		if i, acc := bf.Int64(); acc == big.Exact {
			return i, nil
		}
		f, _ := bf.Float64()
		return f, nil

	case ty == cty.Bool:
		return val.True(), nil

	case ty.IsObjectType() || ty.IsMapType():
		out := make(map[string]any, val.LengthInt())
		for it := val.ElementIterator(); it.Next(); {
			k, v := it.Element()
			converted, err := ctyToGo(v)
			if err != nil {
				return nil, err
			}
			out[k.AsString()] = converted
		}
		return out, nil

	case ty.IsTupleType() || ty.IsListType() || ty.IsSetType():
		out := make([]any, 0, val.LengthInt())
		for it := val.ElementIterator(); it.Next(); {
			_, v := it.Element()
			converted, err := ctyToGo(v)
			if err != nil {
				return nil, err
			}
			out = append(out, converted)
		}
		return out, nil

	default:
		return nil, fmt.Errorf("unsupported value type: %s", ty.FriendlyName())
	}
}
