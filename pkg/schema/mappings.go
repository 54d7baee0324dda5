package schema

import (
	"strings"
)

// HeaderSet is a known mapping table for one kind of input table: exact
// normalized header names first, then ordered substring fallbacks.
type HeaderSet struct {
	Exact      map[string]string
	Substrings []SubstringMapping
}

// SubstringMapping maps a header substring to a canonical field.
type SubstringMapping struct {
	Substring string
	Target    string
}

// IdentityHeaders recognizes the columns of the identity catalog.
var IdentityHeaders = HeaderSet{
	Exact: map[string]string{
		// Full name
		"nombredelcolaborador": FieldFullName,
		"nombrecolaborador":    FieldFullName,
		"nombrecompleto":       FieldFullName,
		"nombre":               FieldFullName,
		"colaborador":          FieldFullName,
		"fullname":             FieldFullName,
		"name":                 FieldFullName,
		"displayname":          FieldFullName,
		"employeename":         FieldFullName,

		// External identifier
		"rut":            FieldExternalID,
		"rutcolaborador": FieldExternalID,
		"dni":            FieldExternalID,
		"documento":      FieldExternalID,
		"identificador":  FieldExternalID,
		"id":             FieldExternalID,
		"externalid":     FieldExternalID,
		"employeeid":     FieldExternalID,
		"empid":          FieldExternalID,

		// Department
		"departamento": FieldDepartment,
		"area":         FieldDepartment,
		"gerencia":     FieldDepartment,
		"department":   FieldDepartment,
		"dept":         FieldDepartment,
		"division":     FieldDepartment,

		// Manager
		"jefatura":    FieldManager,
		"jefe":        FieldManager,
		"jefedirecto": FieldManager,
		"supervisor":  FieldManager,
		"manager":     FieldManager,
		"reportsto":   FieldManager,
	},
	Substrings: []SubstringMapping{
		{"nombre", FieldFullName},
		{"fullname", FieldFullName},
		{"name", FieldFullName},
		{"rut", FieldExternalID},
		{"employeeid", FieldExternalID},
		{"identific", FieldExternalID},
		{"depart", FieldDepartment},
		{"gerencia", FieldDepartment},
		{"jef", FieldManager},
		{"supervis", FieldManager},
		{"manager", FieldManager},
	},
}

// CatalogHeaders recognizes the columns of the shift-code catalog.
var CatalogHeaders = HeaderSet{
	Exact: map[string]string{
		"sigla":        FieldCode,
		"codigo":       FieldCode,
		"codigoturno":  FieldCode,
		"code":         FieldCode,
		"shiftcode":    FieldCode,
		"horario":      FieldDescriptor,
		"rangohorario": FieldDescriptor,
		"rango":        FieldDescriptor,
		"descriptor":   FieldDescriptor,
		"schedule":     FieldDescriptor,
		"timerange":    FieldDescriptor,
		"hours":        FieldDescriptor,
	},
	Substrings: []SubstringMapping{
		{"sigla", FieldCode},
		{"codigo", FieldCode},
		{"code", FieldCode},
		{"horario", FieldDescriptor},
		{"rango", FieldDescriptor},
		{"hora", FieldDescriptor},
		{"schedule", FieldDescriptor},
		{"time", FieldDescriptor},
	},
}

// InferMappings takes a list of headers and returns a map of sourceCol -> targetField.
//  1. Lowercase, strip accents, whitespace, underscores, hyphens and dots
//  2. Exact matches across all headers
//  3. Substring matches for targets still unassigned
//  4. No match -> leave unmapped
//
// Each target is assigned at most once. An exact header anywhere beats a
// substring hit, so "Nombre Jefatura" never takes the full name from a later
// "Nombre del Colaborador". Within a pass the leftmost header wins.
func InferMappings(headers []string, set HeaderSet) map[string]string {
	result := make(map[string]string, len(headers))
	usedTargets := make(map[string]bool)

	normalized := make([]string, len(headers))
	for i, header := range headers {
		normalized[i] = normalizeHeader(header)
	}

	for i, header := range headers {
		if normalized[i] == "" {
			continue
		}
		if target, ok := set.Exact[normalized[i]]; ok && !usedTargets[target] {
			result[header] = target
			usedTargets[target] = true
		}
	}

	for i, header := range headers {
		if normalized[i] == "" {
			continue
		}
		if _, mapped := result[header]; mapped {
			continue
		}
		for _, sm := range set.Substrings {
			if strings.Contains(normalized[i], sm.Substring) && !usedTargets[sm.Target] {
				result[header] = sm.Target
				usedTargets[sm.Target] = true
				break
			}
		}
	}

	return result
}

// normalizeHeader lowercases a header string, strips diacritics and removes
// whitespace, underscores, hyphens and dots.
func normalizeHeader(header string) string {
	s := stripDiacritics(strings.ToLower(strings.TrimSpace(header)))
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\t', '_', '-', '.':
			return -1
		}
		return r
	}, s)
}
