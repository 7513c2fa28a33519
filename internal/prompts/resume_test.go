package prompts

import (
	"errors"
	"strings"
	"testing"

	"github.com/jonathan/resume-builder/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRecord() *types.ResumeRecord {
	return &types.ResumeRecord{
		Profile: types.Profile{Name: "Jane Doe", Email: "jane@x.com"},
		Summary: "Backend engineer",
		Experience: []types.Experience{
			{Company: "Acme", Role: "Engineer", StartDate: "2020", EndDate: "Present", Description: []string{"Built APIs"}},
		},
		Education: []types.Education{},
		Skills:    []types.SkillGroup{{Category: "Languages", Items: []string{"Go"}}},
	}
}

func TestBuildExtractionPrompt(t *testing.T) {
	prompt := BuildExtractionPrompt("Jane Doe jane@x.com")

	assert.Contains(t, prompt, "RESUME TEXT:\nJane Doe jane@x.com\n")
	assert.Contains(t, prompt, SchemaDescription())
	assert.Contains(t, prompt, "Just return the raw JSON.")
	assert.NotContains(t, prompt, "{{.")
}

func TestBuildExtractionPrompt_Deterministic(t *testing.T) {
	text := "Some resume text with {{.ResumeText}} inside"
	assert.Equal(t, BuildExtractionPrompt(text), BuildExtractionPrompt(text))
	assert.Contains(t, BuildExtractionPrompt(text), text)
}

func TestBuildTailoringPrompt(t *testing.T) {
	prompt, err := BuildTailoringPrompt(testRecord(), "Senior Go engineer, Kubernetes")
	require.NoError(t, err)

	assert.Contains(t, prompt, "TARGET JOB DESCRIPTION:\nSenior Go engineer, Kubernetes\n")
	assert.Contains(t, prompt, `"profile":{"name":"Jane Doe","email":"jane@x.com","phone":"","location":""}`)
	assert.Contains(t, prompt, `"endDate":"Present"`)
	assert.NotContains(t, prompt, "{{.")
}

func TestBuildTailoringPrompt_Instructions(t *testing.T) {
	prompt, err := BuildTailoringPrompt(testRecord(), "jd")
	require.NoError(t, err)

	instructions := []string{
		"1. OPTIMIZE SUMMARY",
		"2. REORDER/REFINE SKILLS",
		"3. ENHANCE EXPERIENCE",
		"4. DO NOT INVENT jobs or degrees",
		"5. MATCH THE JSON STRUCTURE EXACTLY",
	}
	last := -1
	for _, instruction := range instructions {
		idx := strings.Index(prompt, instruction)
		require.GreaterOrEqual(t, idx, 0, "missing %q", instruction)
		assert.Greater(t, idx, last, "%q out of order", instruction)
		last = idx
	}
}

func TestBuildTailoringPrompt_Deterministic(t *testing.T) {
	first, err := BuildTailoringPrompt(testRecord(), "jd")
	require.NoError(t, err)
	second, err := BuildTailoringPrompt(testRecord(), "jd")
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestBuildTailoringPrompt_NilRecord(t *testing.T) {
	_, err := BuildTailoringPrompt(nil, "jd")
	assert.EqualError(t, err, "resume record is required")
}

func TestBuildRepairPrompt(t *testing.T) {
	prompt := BuildRepairPrompt(`{"profile": `, errors.New("unexpected end of JSON input"))

	assert.Contains(t, prompt, "DECODE ERROR:\nunexpected end of JSON input\n")
	assert.Contains(t, prompt, "OUTPUT:\n{\"profile\": \n")
	assert.Contains(t, prompt, SchemaDescription())

	assert.Contains(t, BuildRepairPrompt("x", nil), "unknown error")
}
