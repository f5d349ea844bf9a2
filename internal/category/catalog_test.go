package category

import (
	"reflect"
	"testing"
)

func TestFromPath(t *testing.T) {
	cases := []struct {
		path string
		want string
	}{
		{"/docs/compliance/pspf.pdf", "compliance"},
		{"/docs/contracts/msa.docx", "contracts"},
		{"/docs/proposals/tender.pdf", "proposals"},
		{"/docs/proposal_final.pdf", "proposals"},
		{"/docs/pricing/quote.xlsx", "pricing"},
		{"/docs/requirements/rfp.pdf", "requirements"},
		{"/docs/technical/arch.md", "technical"},
		{"/docs/policies/leave.pdf", "policies"},
		{"/docs/cvs_resumes/jane.pdf", "cvs_resumes"},
		{"/docs/cv/jane.pdf", "cvs_resumes"},
		{"/docs/resumes/jane.pdf", "cvs_resumes"},
		// cv keywords win over weaker matches later in the path.
		{"/docs/cv/technical_lead.pdf", "cvs_resumes"},
		{"C:\\docs\\Compliance\\pspf.pdf", "compliance"},
		{"/docs/COMPLIANCE/pspf.pdf", "compliance"},
		// Substring matching, unlike the scanner's segment matching.
		{"/docs/compliance-2026/report.pdf", "compliance"},
		{"/docs/misc/notes.txt", "other"},
		{"", "other"},
	}
	for _, tc := range cases {
		if got := FromPath(tc.path); got != tc.want {
			t.Errorf("FromPath(%q) = %q, want %q", tc.path, got, tc.want)
		}
	}
}

func TestAllCatalog(t *testing.T) {
	all := All()
	if len(all) != 9 {
		t.Fatalf("len(All()) = %d, want 9", len(all))
	}
	for _, c := range all {
		if c.Name == "" || c.Color == "" || c.Icon == "" || c.Description == "" {
			t.Errorf("incomplete catalog entry: %+v", c)
		}
	}
	if all[len(all)-1].Name != Default {
		t.Errorf("last catalog entry = %q, want %q", all[len(all)-1].Name, Default)
	}

	// All returns a copy, not the backing array.
	all[0].Name = "mutated"
	if All()[0].Name == "mutated" {
		t.Error("All() exposed internal catalog slice")
	}
}

func TestValidate(t *testing.T) {
	got := Validate([]string{"compliance", "bogus", "pricing", ""})
	want := []string{"compliance", "pricing"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Validate = %v, want %v", got, want)
	}

	if got := Validate(nil); len(got) != 0 {
		t.Errorf("Validate(nil) = %v, want empty", got)
	}
}

func TestKnown(t *testing.T) {
	if !Known("other") {
		t.Error("Known(other) = false, want true")
	}
	if Known("Compliance") {
		t.Error("Known is case-sensitive; Known(Compliance) should be false")
	}
}
