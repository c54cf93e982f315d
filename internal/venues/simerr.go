package venues

// ExtractCustomErrorCode pulls the custom program error code out of a
// simulateTransaction error payload of the shape
// {"InstructionError": [idx, {"Custom": code}]}.
func ExtractCustomErrorCode(simErr interface{}) (uint32, bool) {
	m, ok := simErr.(map[string]interface{})
	if !ok {
		return 0, false
	}

	ie, ok := m["InstructionError"].([]interface{})
	if !ok || len(ie) < 2 {
		return 0, false
	}

	detail, ok := ie[1].(map[string]interface{})
	if !ok {
		return 0, false
	}

	switch code := detail["Custom"].(type) {
	case float64:
		return uint32(code), true
	case int:
		return uint32(code), true
	}
	return 0, false
}
