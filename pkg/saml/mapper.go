package saml

import "strings"

// MapAttributes deterministically maps a raw assertion attribute set to a
// normalized identity using the provider's mapping config. Absent keys map to
// empty values; the full raw set is always carried on the result for
// collaborator hooks. The input map is never mutated.
func MapAttributes(raw map[string]string, mapping *AttributeMapping) *NormalizedIdentity {
	if mapping == nil {
		mapping = &AttributeMapping{}
	}

	idKey := mapping.ID
	if idKey == "" {
		idKey = DefaultIDAttribute
	}
	emailKey := mapping.Email
	if emailKey == "" {
		emailKey = DefaultEmailAttribute
	}
	firstKey := mapping.FirstName
	if firstKey == "" {
		firstKey = DefaultFirstNameAttribute
	}
	lastKey := mapping.LastName
	if lastKey == "" {
		lastKey = DefaultLastNameAttribute
	}

	identity := &NormalizedIdentity{
		ID:         raw[idKey],
		Email:      raw[emailKey],
		Name:       joinName(raw[firstKey], raw[lastKey], raw[DefaultDisplayNameAttribute]),
		Attributes: copyAttributes(raw),
	}

	if len(mapping.ExtraFields) > 0 {
		identity.ExtraFields = make(map[string]string, len(mapping.ExtraFields))
		for key, attrName := range mapping.ExtraFields {
			identity.ExtraFields[key] = raw[attrName]
		}
	}

	return identity
}

// joinName builds a display name from first/last parts, skipping absent ones.
// When both are absent it falls back to the display-name attribute.
func joinName(first, last, display string) string {
	parts := make([]string, 0, 2)
	if first != "" {
		parts = append(parts, first)
	}
	if last != "" {
		parts = append(parts, last)
	}
	if len(parts) == 0 {
		return display
	}
	return strings.Join(parts, " ")
}

func copyAttributes(raw map[string]string) map[string]string {
	out := make(map[string]string, len(raw))
	for k, v := range raw {
		out[k] = v
	}
	return out
}
