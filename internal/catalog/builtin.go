package catalog

import "github.com/ppecheck/ppecheck/pkg/model"

// BuiltinVersion identifies the compiled-in catalog.
const BuiltinVersion = "builtin-1"

// Default returns a fresh copy of the built-in fall-protection catalog.
func Default() *model.Catalog {
	cat := &model.Catalog{
		Version: BuiltinVersion,
		Categories: []model.Category{
			{
				ID:   "harness",
				Name: "Full body harness",
				Items: []model.ItemTemplate{
					{ID: "webbing", Title: "Webbing", Description: "No cuts, burns, frayed edges, chemical damage or discoloration."},
					{ID: "stitching", Title: "Stitching", Description: "No broken, pulled or cut stitches in load-bearing seams."},
					{ID: "buckles", Title: "Buckles and adjusters", Description: "Buckles engage fully and are free of cracks, corrosion and distortion."},
					{ID: "d-rings", Title: "D-rings", Description: "Dorsal and side D-rings free of deformation, sharp edges and cracks."},
					{ID: "labels", Title: "Labels", Description: "Identification and inspection labels present and legible."},
				},
			},
			{
				ID:   "lanyard",
				Name: "Energy-absorbing lanyard",
				Items: []model.ItemTemplate{
					{ID: "rope", Title: "Rope or webbing", Description: "No cuts, abrasion, knots or UV degradation along the full length."},
					{ID: "absorber", Title: "Shock absorber pack", Description: "Pack cover intact; no sign of deployment or tearing."},
					{ID: "hooks", Title: "Snap hooks", Description: "Gates close and lock automatically; no distortion."},
					{ID: "thimbles", Title: "Thimbles and terminations", Description: "Eye splices and thimbles secure and undamaged."},
				},
			},
			{
				ID:   "helmet",
				Name: "Safety helmet",
				Items: []model.ItemTemplate{
					{ID: "shell", Title: "Shell", Description: "No cracks, dents, chalking or deep scratches."},
					{ID: "suspension", Title: "Suspension", Description: "Harness straps and clips intact and attached at every point."},
					{ID: "chinstrap", Title: "Chin strap", Description: "Strap and buckle function correctly."},
					{ID: "service-life", Title: "Service life", Description: "Within manufacturer service life from date of manufacture."},
				},
			},
			{
				ID:   "connector",
				Name: "Connectors and karabiners",
				Items: []model.ItemTemplate{
					{ID: "gate", Title: "Gate action", Description: "Gate opens smoothly and closes fully under spring tension."},
					{ID: "lock", Title: "Locking mechanism", Description: "Locking sleeve engages and cannot be opened without deliberate action."},
					{ID: "body", Title: "Body", Description: "No wear grooves, cracks, corrosion or deformation."},
				},
			},
		},
	}
	link(cat)
	return cat
}
