package ethics

import (
	"database/sql/driver"
	"fmt"
)

// Framework is the stored code of an ethical framework label.
type Framework string

const (
	Deontological    Framework = "DEO"
	Consequentialist Framework = "CON"
	Utilitarian      Framework = "UTL"
	Relational       Framework = "REL"
	Mixed            Framework = "MIXED"
	Unknown          Framework = "UNKNOWN"
)

// AllFrameworks lists every label in display order.
var AllFrameworks = []Framework{Deontological, Consequentialist, Utilitarian, Relational, Mixed, Unknown}

// FrameworkInfo is the display metadata for a label.
type FrameworkInfo struct {
	Code        Framework `json:"code"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
}

var frameworkInfo = map[Framework]FrameworkInfo{
	Deontological: {
		Code:        Deontological,
		Name:        "Deontological",
		Description: "Judges actions by duties and rules, regardless of outcome.",
	},
	Consequentialist: {
		Code:        Consequentialist,
		Name:        "Consequentialist",
		Description: "Judges actions by their outcomes and consequences.",
	},
	Utilitarian: {
		Code:        Utilitarian,
		Name:        "Utilitarian",
		Description: "Seeks the greatest good for the greatest number.",
	},
	Relational: {
		Code:        Relational,
		Name:        "Relational",
		Description: "Weighs relationships, care and the context of those involved.",
	},
	Mixed: {
		Code:        Mixed,
		Name:        "Mixed",
		Description: "Draws on several frameworks with no clear dominant one.",
	},
	Unknown: {
		Code:        Unknown,
		Name:        "Unknown",
		Description: "No recognisable framework in the reasoning.",
	},
}

// Info returns display metadata for f. Unrecognised codes map to Unknown.
func Info(f Framework) FrameworkInfo {
	if info, ok := frameworkInfo[f]; ok {
		return info
	}
	return frameworkInfo[Unknown]
}

// Valid reports whether f is one of the known codes.
func (f Framework) Valid() bool {
	_, ok := frameworkInfo[f]
	return ok
}

// Value implements driver.Valuer so the label is stored as text.
func (f Framework) Value() (driver.Value, error) {
	if f == "" {
		return string(Unknown), nil
	}
	return string(f), nil
}

// Scan implements sql.Scanner.
func (f *Framework) Scan(src any) error {
	switch v := src.(type) {
	case string:
		*f = Framework(v)
	case []byte:
		*f = Framework(v)
	case nil:
		*f = Unknown
	default:
		return fmt.Errorf("ethics: cannot scan %T into Framework", src)
	}
	return nil
}
