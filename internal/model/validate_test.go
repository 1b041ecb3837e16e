package model

import "testing"

func validResumeMap() map[string]interface{} {
	return map[string]interface{}{
		"full_name":            "Test User",
		"title":                "Engineer",
		"professional_summary": "Builds backend systems.",
		"technical_skills": map[string]interface{}{
			"languages": "Go, SQL",
		},
		"experience": []interface{}{
			map[string]interface{}{"company": "Acme", "position": "Engineer"},
		},
		"education": []interface{}{
			map[string]interface{}{"institution": "State University", "degree": "BSc"},
		},
		"languages": []interface{}{"English"},
	}
}

func TestValidateMap(t *testing.T) {
	if err := ValidateMap(validResumeMap()); err != nil {
		t.Fatalf("valid resume rejected: %v", err)
	}
}

func TestValidateMapMissingRequired(t *testing.T) {
	m := validResumeMap()
	delete(m, "full_name")
	if err := ValidateMap(m); err == nil {
		t.Fatal("expected error for missing full_name")
	}
}

func TestValidateMapWrongSkillShape(t *testing.T) {
	m := validResumeMap()
	m["technical_skills"] = map[string]interface{}{
		"languages": []interface{}{"Go", "SQL"},
	}
	if err := ValidateMap(m); err == nil {
		t.Fatal("expected error for non-string skill group")
	}
}

func TestValidateMapExperienceMissingCompany(t *testing.T) {
	m := validResumeMap()
	m["experience"] = []interface{}{
		map[string]interface{}{"position": "Engineer"},
	}
	if err := ValidateMap(m); err == nil {
		t.Fatal("expected error for experience item without company")
	}
}
