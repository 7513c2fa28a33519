package prompts

import (
	"fmt"
	"strings"
)

// Field types understood by the schema renderer
const (
	TypeString      = "string"
	TypeStringList  = "[]string"
	TypeObject      = "object"
	TypeObjectList  = "[]object"
	optionalSuffix  = " (optional)"
	indentationUnit = "  "
)

// SchemaField describes one field of the structured resume for the model.
type SchemaField struct {
	Name     string        // JSON field name
	Type     string        // one of the Type* constants
	Required bool          // whether the model must always emit the field
	Fields   []SchemaField // children of object and []object fields
}

// ResumeFields is the resume record layout as presented to the model.
// It mirrors resume.schema.json in internal/schemas.
var ResumeFields = []SchemaField{
	{Name: "profile", Type: TypeObject, Required: true, Fields: []SchemaField{
		{Name: "name", Type: TypeString, Required: true},
		{Name: "email", Type: TypeString, Required: true},
		{Name: "phone", Type: TypeString, Required: true},
		{Name: "location", Type: TypeString, Required: true},
		{Name: "website", Type: TypeString},
		{Name: "linkedin", Type: TypeString},
		{Name: "github", Type: TypeString},
	}},
	{Name: "summary", Type: TypeString, Required: true},
	{Name: "experience", Type: TypeObjectList, Required: true, Fields: []SchemaField{
		{Name: "company", Type: TypeString, Required: true},
		{Name: "role", Type: TypeString, Required: true},
		{Name: "startDate", Type: TypeString, Required: true},
		{Name: "endDate", Type: TypeString, Required: true},
		{Name: "location", Type: TypeString},
		{Name: "description", Type: TypeStringList, Required: true},
	}},
	{Name: "education", Type: TypeObjectList, Required: true, Fields: []SchemaField{
		{Name: "school", Type: TypeString, Required: true},
		{Name: "degree", Type: TypeString, Required: true},
		{Name: "graduationDate", Type: TypeString, Required: true},
		{Name: "gpa", Type: TypeString},
	}},
	{Name: "skills", Type: TypeObjectList, Required: true, Fields: []SchemaField{
		{Name: "category", Type: TypeString, Required: true},
		{Name: "items", Type: TypeStringList, Required: true},
	}},
	{Name: "projects", Type: TypeObjectList, Fields: []SchemaField{
		{Name: "name", Type: TypeString, Required: true},
		{Name: "description", Type: TypeString, Required: true},
		{Name: "technologies", Type: TypeStringList, Required: true},
		{Name: "link", Type: TypeString},
	}},
}

// SchemaDescription renders ResumeFields as a JSON-shaped interface description.
func SchemaDescription() string {
	var sb strings.Builder
	sb.WriteString("{\n")
	writeFields(&sb, ResumeFields, 1)
	sb.WriteString("}")
	return sb.String()
}

func writeFields(sb *strings.Builder, fields []SchemaField, depth int) {
	indent := strings.Repeat(indentationUnit, depth)
	for i, field := range fields {
		suffix := ""
		if !field.Required {
			suffix = optionalSuffix
		}

		sb.WriteString(fmt.Sprintf("%s%q: ", indent, field.Name))
		switch field.Type {
		case TypeObject:
			sb.WriteString("{\n")
			writeFields(sb, field.Fields, depth+1)
			sb.WriteString(indent + "}" + suffix)
		case TypeObjectList:
			sb.WriteString("[\n")
			sb.WriteString(indent + indentationUnit + "{\n")
			writeFields(sb, field.Fields, depth+2)
			sb.WriteString(indent + indentationUnit + "}\n")
			sb.WriteString(indent + "]" + suffix)
		case TypeStringList:
			sb.WriteString(`["string"]` + suffix)
		default:
			sb.WriteString(`"string` + suffix + `"`)
		}

		if i < len(fields)-1 {
			sb.WriteString(",")
		}
		sb.WriteString("\n")
	}
}
