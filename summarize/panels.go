package summarize

// PanelPoint is one plottable value: a metric at a realized depth for one
// method.
type PanelPoint struct {
	Depth      float64
	Proportion float64
	Method     string
	Value      float64
}

// Panel is one depth-indexed series of a summary metric.
type Panel struct {
	Metric string
	Points []PanelPoint
}

// Panel metric names, in display order.
const (
	PanelSignificant = "significant"
	PanelEstFDP      = "estFDP"
	PanelSpearman    = "spearman"
	PanelMSE         = "MSE"
)

// Panels extracts the four standard depth-saturation panels from a summary
// store: significant-gene count, estimated FDP, rank correlation, and MSE.
// Rendering is left to the caller.
func Panels(s *Store) []Panel {
	extract := func(metric string, get func(Row) float64) Panel {
		panel := Panel{Metric: metric}
		for _, row := range s.Rows {
			panel.Points = append(panel.Points, PanelPoint{
				Depth:      row.Depth,
				Proportion: row.Proportion,
				Method:     row.Method,
				Value:      get(row),
			})
		}
		return panel
	}
	return []Panel{
		extract(PanelSignificant, func(r Row) float64 { return r.Significant }),
		extract(PanelEstFDP, func(r Row) float64 { return r.EstFDP }),
		extract(PanelSpearman, func(r Row) float64 { return r.Spearman }),
		extract(PanelMSE, func(r Row) float64 { return r.MSE }),
	}
}
