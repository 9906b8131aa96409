package testmethod

import (
	"fmt"
	"strings"

	"github.com/jaksonlin/testcraft-dashboard-sub000/internal/domain/coverage"
)

// Normalize trims identifying fields and fills in the default team.
func Normalize(m coverage.Method) coverage.Method {
	m.Repository = strings.TrimSpace(m.Repository)
	m.PackageName = strings.TrimSpace(m.PackageName)
	m.TestClass = strings.TrimSpace(m.TestClass)
	m.TestMethod = strings.TrimSpace(m.TestMethod)
	m.TeamName = strings.TrimSpace(m.TeamName)
	m.TeamCode = strings.TrimSpace(m.TeamCode)
	if m.TeamName == "" {
		m.TeamName = UnassignedTeam
	}
	return m
}

// ValidateMethod checks the fields that identify a stored method.
func ValidateMethod(m coverage.Method) error {
	switch {
	case m.Repository == "":
		return fmt.Errorf("%w: repository is required", ErrInvalidInput)
	case m.TestClass == "":
		return fmt.Errorf("%w: testClass is required", ErrInvalidInput)
	case m.TestMethod == "":
		return fmt.Errorf("%w: testMethod is required", ErrInvalidInput)
	case m.Line < 0:
		return fmt.Errorf("%w: line must not be negative", ErrInvalidInput)
	}
	return nil
}
