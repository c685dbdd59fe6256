package reporting

import (
	"fmt"
	"strings"
)

// RenderCSV renders the per-product holdout table as a CSV string.
func RenderCSV(rows []ProductRow) string {
	var sb strings.Builder

	sb.WriteString("product_id,n,mae,rmse,bias\n")
	for _, r := range rows {
		sb.WriteString(fmt.Sprintf("%s,%d,%.6f,%.6f,%.6f\n",
			r.ProductID,
			r.N,
			r.MAE,
			r.RMSE,
			r.Bias,
		))
	}

	return sb.String()
}
