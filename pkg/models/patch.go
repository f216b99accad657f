package models

import (
	"encoding/json"
	"fmt"
)

// JobPatch is a partial update of a job. Only fields that are set are sent and
// applied. SalaryExpectations distinguishes "absent" from "explicitly cleared":
// set ClearSalary to send a JSON null.
type JobPatch struct {
	Company            *string
	Position           *string
	Status             *JobStatus
	SalaryExpectations *string
	ClearSalary        bool
}

// Empty reports whether the patch changes nothing.
func (p JobPatch) Empty() bool {
	return p.Company == nil && p.Position == nil && p.Status == nil &&
		p.SalaryExpectations == nil && !p.ClearSalary
}

// Apply overwrites the fields of j that the patch carries. Comments, identity,
// ordering and timestamps are left untouched.
func (p JobPatch) Apply(j *Job) {
	if p.Company != nil {
		j.Company = *p.Company
	}
	if p.Position != nil {
		j.Position = *p.Position
	}
	if p.Status != nil {
		j.Status = *p.Status
	}
	switch {
	case p.ClearSalary:
		j.SalaryExpectations = nil
	case p.SalaryExpectations != nil:
		v := *p.SalaryExpectations
		j.SalaryExpectations = &v
	}
}

func (p JobPatch) MarshalJSON() ([]byte, error) {
	body := make(map[string]any, 4)
	if p.Company != nil {
		body["company"] = *p.Company
	}
	if p.Position != nil {
		body["position"] = *p.Position
	}
	if p.Status != nil {
		body["status"] = *p.Status
	}
	switch {
	case p.ClearSalary:
		body["salary_expectations"] = nil
	case p.SalaryExpectations != nil:
		body["salary_expectations"] = *p.SalaryExpectations
	}
	return json.Marshal(body)
}

func (p *JobPatch) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*p = JobPatch{}

	str := func(key string) (*string, error) {
		v, ok := raw[key]
		if !ok || string(v) == "null" {
			return nil, nil
		}
		var s string
		if err := json.Unmarshal(v, &s); err != nil {
			return nil, fmt.Errorf("%s: %w", key, err)
		}
		return &s, nil
	}

	var err error
	if p.Company, err = str("company"); err != nil {
		return err
	}
	if p.Position, err = str("position"); err != nil {
		return err
	}
	status, err := str("status")
	if err != nil {
		return err
	}
	if status != nil {
		s := JobStatus(*status)
		p.Status = &s
	}
	if v, ok := raw["salary_expectations"]; ok {
		if string(v) == "null" {
			p.ClearSalary = true
		} else if p.SalaryExpectations, err = str("salary_expectations"); err != nil {
			return err
		}
	}
	return nil
}
