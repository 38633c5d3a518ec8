package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validPlan() *ImportPlan {
	return &ImportPlan{
		Root: "/docs",
		Bases: []PlannedBase{
			{
				Name: "sales",
				Dir:  "/docs/sales",
				Files: []FileEntry{
					{Path: "/docs/sales/q1.pdf", Name: "q1.pdf", Ext: ".pdf"},
					{Path: "/docs/sales/q2.pdf", Name: "q2.pdf", Ext: ".pdf"},
				},
			},
			{
				Name: "marketing",
				Dir:  "/docs/marketing",
				Files: []FileEntry{
					{Path: "/docs/marketing/brand.md", Name: "brand.md", Ext: ".md"},
				},
			},
		},
	}
}

func TestValidatePlan_Valid(t *testing.T) {
	require.NoError(t, ValidatePlan(validPlan()))
}

func TestValidatePlan_Nil(t *testing.T) {
	err := ValidatePlan(nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidPlan)
}

func TestValidatePlan_EmptyBaseName(t *testing.T) {
	plan := validPlan()
	plan.Bases[0].Name = ""

	err := ValidatePlan(plan)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrEmptyBaseName)
}

func TestValidatePlan_DuplicateBaseName(t *testing.T) {
	plan := validPlan()
	plan.Bases[1].Name = plan.Bases[0].Name

	err := ValidatePlan(plan)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDuplicateBaseName)
}

func TestValidatePlan_EmptyBase(t *testing.T) {
	plan := validPlan()
	plan.Bases[1].Files = nil

	err := ValidatePlan(plan)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrEmptyBase)
}

func TestValidatePlan_RelativePath(t *testing.T) {
	plan := validPlan()
	plan.Bases[0].Files[0].Path = "sales/q1.pdf"

	err := ValidatePlan(plan)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRelativePath)
}

func TestValidatePlan_DuplicateFile(t *testing.T) {
	plan := validPlan()
	plan.Bases[0].Files[1].Path = plan.Bases[0].Files[0].Path

	err := ValidatePlan(plan)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDuplicateFile)
}
