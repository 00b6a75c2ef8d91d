package verify

import "testing"

func TestSanitizeRow(t *testing.T) {
	in := map[string]string{
		"id":              "1001",
		"input_score":     "NaN",
		"extracted_score": "null",
		"input_rank":      "None",
		"extracted_rank":  "<nil>",
		"input_name":      "Asha Rao",
		"error":           "",
	}
	out := SanitizeRow(in)

	for _, k := range []string{"input_score", "extracted_score", "input_rank", "extracted_rank"} {
		if out[k] != "" {
			t.Errorf("%s = %q, want scrubbed", k, out[k])
		}
	}
	if out["input_name"] != "Asha Rao" {
		t.Errorf("input_name = %q, normal values must pass through", out["input_name"])
	}
	if in["input_score"] != "NaN" {
		t.Error("SanitizeRow must not mutate its input")
	}
}

func TestValidateRow(t *testing.T) {
	good := map[string]string{"id": "1001", "error": "", "input_name": "Asha"}
	if err := ValidateRow(good); err != nil {
		t.Errorf("valid row rejected: %v", err)
	}

	if err := ValidateRow(map[string]string{"error": "x"}); err == nil {
		t.Error("row without id must fail validation")
	}
	if err := ValidateRow(map[string]string{"id": ""}); err == nil {
		t.Error("empty id must fail validation")
	}
}
