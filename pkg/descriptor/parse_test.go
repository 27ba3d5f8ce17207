package descriptor

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

const validDoc = `{
	"document": {"title": "Higgsino pair production", "calculator": "NLL-fast", "version": "0.1"},
	"attributes": {
		"processes": ["pp > n1 n2", "pp > n1 c1"],
		"collider": "pp",
		"ecm": "13TeV",
		"order": "NLO",
		"pdf_name": "PDF4LHC15"
	},
	"columns": [
		{"name": "m_hino", "unit": "GeV"},
		{"name": "xsec", "unit": "fb"},
		{"name": "unc_scale", "unit": "%"},
		{"name": "unc_pdf", "unit": "%"}
	],
	"reader_options": {"skiprows": 1, "delim_whitespace": true},
	"parameters": [{"column": "m_hino", "granularity": 1}],
	"values": [
		{
			"column": "xsec",
			"unc-": [{"column": "unc_scale", "type": "relative"}, {"column": "unc_pdf", "type": "relative"}],
			"unc+": [{"column": "unc_scale", "type": "relative"}, {"column": "unc_pdf", "type": "relative"}]
		}
	]
}`

func TestXsec_Descriptor_Parse(t *testing.T) {
	t.Parallel()

	t.Run("valid_document", func(t *testing.T) {
		t.Parallel()
		d, err := Parse(strings.NewReader(validDoc))
		require.NoError(t, err)

		require.Len(t, d.Columns, 4)
		require.Equal(t, 1, d.ReaderOptions.SkipRows)
		require.True(t, d.ReaderOptions.DelimWhitespace)
		require.Len(t, d.Parameters, 1)
		require.Len(t, d.Values, 1)
		require.Len(t, d.Values[0].UncMinus, 2)
		require.Equal(t, Relative, d.Values[0].UncMinus[0].Type)

		col, ok := d.Column("xsec")
		require.True(t, ok)
		require.Equal(t, "fb", col.Unit)
	})

	t.Run("attribute_shapes_preserved", func(t *testing.T) {
		t.Parallel()
		d, err := Parse(strings.NewReader(validDoc))
		require.NoError(t, err)

		procs := d.Attrs["processes"]
		require.True(t, procs.IsList())
		require.Equal(t, []string{"pp > n1 n2", "pp > n1 c1"}, procs.Values())

		collider := d.Attrs["collider"]
		require.False(t, collider.IsList())
		require.Equal(t, "pp", collider.String())
	})

	t.Run("symmetric_unc_expands_both_sides", func(t *testing.T) {
		t.Parallel()
		doc := strings.Replace(validDoc,
			`"unc-": [{"column": "unc_scale", "type": "relative"}, {"column": "unc_pdf", "type": "relative"}],
			"unc+": [{"column": "unc_scale", "type": "relative"}, {"column": "unc_pdf", "type": "relative"}]`,
			`"unc": [{"column": "unc_scale", "type": "relative"}]`, 1)
		d, err := Parse(strings.NewReader(doc))
		require.NoError(t, err)
		require.True(t, d.Values[0].Symmetric)
		require.Equal(t, d.Values[0].UncMinus, d.Values[0].UncPlus)
	})

	t.Run("signed_pair_column_list", func(t *testing.T) {
		t.Parallel()
		doc := strings.Replace(validDoc,
			`{"column": "unc_scale", "type": "relative"}, {"column": "unc_pdf", "type": "relative"}]`,
			`{"column": ["unc_scale", "unc_pdf"], "type": "absolute,signed"}]`, 2)
		d, err := Parse(strings.NewReader(doc))
		require.NoError(t, err)
		require.Equal(t, AbsoluteSigned, d.Values[0].UncMinus[0].Type)
		require.Equal(t, []string{"unc_scale", "unc_pdf"}, d.Values[0].UncMinus[0].Columns)
	})
}

func TestXsec_Descriptor_Parse_Invalid(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		mutate  func(string) string
		wantSub string
	}{
		{
			name:    "unknown_parameter_column",
			mutate:  func(s string) string { return strings.Replace(s, `{"column": "m_hino", "granularity": 1}`, `{"column": "m_stop", "granularity": 1}`, 1) },
			wantSub: "unknown column",
		},
		{
			name:    "non_positive_granularity",
			mutate:  func(s string) string { return strings.Replace(s, `"granularity": 1`, `"granularity": 0`, 1) },
			wantSub: "granularity",
		},
		{
			name:    "unknown_value_column",
			mutate:  func(s string) string { return strings.Replace(s, `"column": "xsec",`, `"column": "sigma",`, 1) },
			wantSub: "unknown column",
		},
		{
			name:    "unknown_uncertainty_type",
			mutate:  func(s string) string { return strings.ReplaceAll(s, `"type": "relative"`, `"type": "gaussian"`) },
			wantSub: "unknown uncertainty type",
		},
		{
			name:    "unknown_reader_option",
			mutate:  func(s string) string { return strings.Replace(s, `"skiprows": 1`, `"skiprows": 1, "comment": "#"`, 1) },
			wantSub: "unrecognized reader option",
		},
		{
			name:    "duplicate_column_name",
			mutate:  func(s string) string { return strings.Replace(s, `{"name": "unc_pdf", "unit": "%"}`, `{"name": "unc_scale", "unit": "%"}`, 1) },
			wantSub: "duplicate column name",
		},
		{
			name: "no_parameters",
			mutate: func(s string) string {
				return strings.Replace(s, `[{"column": "m_hino", "granularity": 1}]`, `[]`, 1)
			},
			wantSub: "parameter",
		},
		{
			name: "signed_pair_with_one_column",
			mutate: func(s string) string {
				return strings.ReplaceAll(s, `"type": "relative"}, {"column": "unc_pdf", "type": "relative"}`, `"type": "absolute,signed"}`)
			},
			wantSub: "exactly two columns",
		},
		{
			name: "unc_duplicates_sides",
			mutate: func(s string) string {
				return strings.Replace(s, `"unc-":`, `"unc": [{"column": "unc_scale", "type": "relative"}], "unc-":`, 1)
			},
			wantSub: `"unc"`,
		},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, err := Parse(strings.NewReader(tc.mutate(validDoc)))
			require.Error(t, err)

			var schemaErr *SchemaError
			require.True(t, errors.As(err, &schemaErr), "expected *SchemaError, got %T: %v", err, err)
			require.Contains(t, err.Error(), tc.wantSub)
		})
	}
}

func TestXsec_Descriptor_AttrsMerge(t *testing.T) {
	t.Parallel()

	base := Attrs{
		"collider": StringAttr("pp"),
		"order":    StringAttr("LO"),
	}
	override := Attrs{
		"order":    StringAttr("NLO"),
		"pdf_name": StringAttr("CTEQ6.6"),
	}

	merged := base.Merge(override)
	require.Equal(t, "pp", merged["collider"].String())
	require.Equal(t, "NLO", merged["order"].String())
	require.Equal(t, "CTEQ6.6", merged["pdf_name"].String())

	// inputs untouched
	require.Equal(t, "LO", base["order"].String())
	require.NotContains(t, base, "pdf_name")
}
