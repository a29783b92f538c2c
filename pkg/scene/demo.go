package scene

func f64(v float64) *float64 { return &v }
func intp(v int) *int         { return &v }
func boolp(v bool) *bool      { return &v }

// Demo returns the built-in scene shown when no scene file is given. It
// exercises every kind of property field and one nested subgraph.
func Demo() *Document {
	transform := func(id string, x, y float64) ComponentDoc {
		return ComponentDoc{
			ID:   id,
			Type: "CTransform",
			Properties: []PropertyDoc{
				{Name: "position", Type: "number", Value: []any{x, y, 0.0}, Schema: SchemaDoc{Precision: intp(2)}},
				{Name: "scale", Type: "number", Value: 1.0, Schema: SchemaDoc{Min: f64(0), Max: f64(4), Step: f64(0.25), Bar: true}},
				{Name: "visible", Type: "boolean", Value: true},
			},
		}
	}

	return &Document{
		Version: CurrentVersion,
		Name:    "demo",
		Graph: GraphDoc{Nodes: []NodeDoc{
			{
				ID:   "scene",
				Type: "NScene",
				Name: "Scene",
				Components: []ComponentDoc{{
					ID:   "clock",
					Type: "CClock",
					Properties: []PropertyDoc{
						{Name: "rate", Type: "number", Value: 60.0, Schema: SchemaDoc{Min: f64(1), Max: f64(240), Step: f64(1), Bar: true}},
						{Name: "tick", Type: "event", Input: boolp(false)},
						{Name: "elapsed", Type: "number", Value: 0.0, Input: boolp(false), OutLinks: []int{-1}},
					},
				}},
			},
			{
				ID:         "camera",
				Name:       "Camera",
				Parent:     "scene",
				Components: []ComponentDoc{transform("camera-transform", 0, -5)},
			},
			{
				ID:     "light",
				Name:   "Light",
				Parent: "scene",
				Components: []ComponentDoc{
					transform("light-transform", 2, 2),
					{
						ID:   "light-props",
						Type: "CLight",
						Properties: []PropertyDoc{
							{Name: "kind", Type: "number", Value: 1.0, Schema: SchemaDoc{Options: []string{"ambient", "point", "spot"}}},
							{Name: "intensity", Type: "number", Value: 0.8, Schema: SchemaDoc{Min: f64(0), Max: f64(1), Precision: intp(2), Bar: true}, InLinks: []int{-1}},
							{Name: "color", Type: "number", Value: []any{1.0, 0.9, 0.7}, Schema: SchemaDoc{Min: f64(0), Max: f64(1)}},
							{Name: "label", Type: "string", Value: "key light"},
							{Name: "flash", Type: "event"},
						},
					},
				},
			},
			{
				ID:   "rig",
				Name: "Rig",
				Components: []ComponentDoc{{
					ID:   "rig-graph",
					Type: "CSubgraph",
					Name: "Rig",
					Graph: &GraphDoc{Nodes: []NodeDoc{
						{ID: "rig-root", Name: "Root", Components: []ComponentDoc{transform("rig-root-transform", 0, 0)}},
						{ID: "rig-arm", Name: "Arm", Parent: "rig-root", Components: []ComponentDoc{transform("rig-arm-transform", 1, 0)}},
						{ID: "rig-hand", Name: "Hand", Parent: "rig-arm", Components: []ComponentDoc{transform("rig-hand-transform", 2, 0)}},
					}},
				}},
			},
		}},
	}
}
