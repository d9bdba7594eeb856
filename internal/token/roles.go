package token

// EffectiveRoles returns the assigned roles without duplicates, in their original
// order, with defaultRole appended when it is not already present. Empty slugs are
// dropped.
func EffectiveRoles(roles []string, defaultRole string) []string {
	out := make([]string, 0, len(roles)+1)
	seen := make(map[string]struct{}, len(roles)+1)
	for _, role := range roles {
		if role == "" {
			continue
		}
		if _, ok := seen[role]; ok {
			continue
		}
		seen[role] = struct{}{}
		out = append(out, role)
	}
	if _, ok := seen[defaultRole]; !ok && defaultRole != "" {
		out = append(out, defaultRole)
	}
	return out
}
