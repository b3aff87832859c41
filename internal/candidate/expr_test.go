package candidate

import (
	"math"
	"testing"
)

func TestExpr_Eval(t *testing.T) {
	vars := map[string]float64{
		"gc_fraction": 0.5,
		"length":      20,
		"start":       4,
	}

	type args struct {
		text string
		vars map[string]float64
	}
	tests := []struct {
		name    string
		args    args
		want    float64
		wantErr bool
	}{
		{
			"number",
			args{"42", vars},
			42,
			false,
		},
		{
			"identifier",
			args{"gc_fraction", vars},
			0.5,
			false,
		},
		{
			"identifiers are case insensitive",
			args{"GC_Fraction * Length", vars},
			10,
			false,
		},
		{
			"precedence",
			args{"1 + 2 * 3", vars},
			7,
			false,
		},
		{
			"parens",
			args{"(1 + 2) * 3", vars},
			9,
			false,
		},
		{
			"unary minus",
			args{"-start + 10", vars},
			6,
			false,
		},
		{
			"division",
			args{"length / start", vars},
			5,
			false,
		},
		{
			"unknown quantity",
			args{"melting_temp + 1", vars},
			0,
			true,
		},
		{
			"division by zero",
			args{"1 / (start - 4)", vars},
			0,
			true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			expr, err := ParseExpr(tt.args.text)
			if err != nil {
				t.Fatalf("ParseExpr() error = %v", err)
			}
			got, err := expr.Eval(tt.args.vars)
			if (err != nil) != tt.wantErr {
				t.Errorf("Eval() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if !tt.wantErr && math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("Eval() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParseExpr_Errors(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{"trailing garbage", "1 + 2)"},
		{"missing close paren", "(1 + 2"},
		{"empty", ""},
		{"bad number", "1.2.3"},
		{"dangling operator", "length *"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseExpr(tt.text); err == nil {
				t.Errorf("ParseExpr(%q) error = nil, want parse error", tt.text)
			}
		})
	}
}
