package events

// MigrateMacroEvent rewrites a legacy MacroEvent payload (decoded as a
// generic JSON object) into the current Event shape, in place, and returns
// it. The migration is idempotent: running it again on an already-migrated
// payload is a no-op.
//
//   - "@type": "MacroEvent" becomes "@type": "Event".
//   - "aggregationLogic" is renamed to "aggregation" and remapped:
//     AND->ALL, OR->ANY, ORDERED_ALL->ORDERED.
//   - "components" entries encoded as bare hash strings are wrapped as
//     {"logicalId": <hash>, "version": "1.0"}; entries already shaped as
//     objects pass through unchanged.
func MigrateMacroEvent(payload map[string]any) map[string]any {
	if t, ok := payload["@type"].(string); ok && t == "MacroEvent" {
		payload["@type"] = "Event"
	}

	if raw, ok := payload["aggregationLogic"]; ok {
		delete(payload, "aggregationLogic")
		if _, exists := payload["aggregation"]; !exists {
			if s, ok := raw.(string); ok {
				payload["aggregation"] = remapAggregationLogic(s)
			}
		}
	}

	if comps, ok := payload["components"].([]any); ok {
		migrated := make([]any, len(comps))
		for i, c := range comps {
			switch v := c.(type) {
			case string:
				migrated[i] = map[string]any{"logicalId": v, "version": "1.0"}
			default:
				migrated[i] = v
			}
		}
		payload["components"] = migrated
	}

	return payload
}

func remapAggregationLogic(legacy string) string {
	switch legacy {
	case "AND":
		return "ALL"
	case "OR":
		return "ANY"
	case "ORDERED_ALL":
		return "ORDERED"
	default:
		return legacy
	}
}
