package analytics

import (
	"context"
	"fmt"
	"io"

	"getir-be/internal/logger"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

const (
	sheetOverview    = "Overview"
	sheetDaily       = "Daily"
	sheetTopProducts = "Top Products"
)

func (s *service) Export(ctx context.Context, r Range, w io.Writer) error {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "Export"),
		zap.String("range", string(r)),
	)

	overview, err := s.Overview(ctx, r)
	if err != nil {
		return err
	}
	// 12m has no per-day series, so the Daily sheet carries months instead.
	series, err := s.Daily(ctx, r)
	if err == nil && !r.HasDaily() {
		series, err = s.Monthly(ctx, r)
	}
	if err != nil {
		return err
	}
	top, err := s.Top(ctx, r, EntityProducts, MetricRevenue, DefaultTopN)
	if err != nil {
		return err
	}

	f, err := BuildWorkbook(overview, series, top)
	if err != nil {
		log.Error("failed to build workbook", zap.Error(err))
		return err
	}
	defer f.Close()

	if _, err := f.WriteTo(w); err != nil {
		log.Error("failed to write workbook", zap.Error(err))
		return err
	}
	return nil
}

func writeRow(f *excelize.File, sheet string, row int, values ...any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	return f.SetSheetRow(sheet, cell, &values)
}

// BuildWorkbook lays out the Overview, Daily and Top Products sheets.
func BuildWorkbook(o *Overview, series []Point, top []Leader) (*excelize.File, error) {
	f := excelize.NewFile()

	if err := f.SetSheetName("Sheet1", sheetOverview); err != nil {
		return nil, err
	}
	if _, err := f.NewSheet(sheetDaily); err != nil {
		return nil, err
	}
	if _, err := f.NewSheet(sheetTopProducts); err != nil {
		return nil, err
	}

	overview := [][]any{
		{"Metric", "Value"},
		{"Range", string(o.Range)},
		{"Total orders", o.TotalOrders},
		{"Delivered orders", o.DeliveredOrders},
		{"Revenue", o.Revenue.InexactFloat64()},
		{"Average order value", o.AverageOrderValue.InexactFloat64()},
		{"Delivery fees", o.DeliveryFees.InexactFloat64()},
		{"Total customers", o.TotalCustomers},
		{"New customers", o.NewCustomers},
		{"Active stores", o.ActiveStores},
		{"Active drivers", o.ActiveDrivers},
		{"Pending driver applications", o.PendingDriverApplicants},
	}
	for i, row := range overview {
		if err := writeRow(f, sheetOverview, i+1, row...); err != nil {
			return nil, err
		}
	}

	if err := writeRow(f, sheetDaily, 1, "Period", "Orders", "Revenue"); err != nil {
		return nil, err
	}
	for i, p := range series {
		if err := writeRow(f, sheetDaily, i+2, p.Period, p.Orders, p.Revenue.InexactFloat64()); err != nil {
			return nil, err
		}
	}

	if err := writeRow(f, sheetTopProducts, 1, "Rank", "Product ID", "Product", "Units", "Revenue"); err != nil {
		return nil, err
	}
	for i, l := range top {
		if err := writeRow(f, sheetTopProducts, i+2, i+1, l.ID, l.Name, l.Count, l.Revenue.InexactFloat64()); err != nil {
			return nil, err
		}
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, err
	}
	for sheet, last := range map[string]string{sheetOverview: "B1", sheetDaily: "C1", sheetTopProducts: "E1"} {
		if err := f.SetCellStyle(sheet, "A1", last, bold); err != nil {
			return nil, fmt.Errorf("style %s: %w", sheet, err)
		}
	}

	return f, nil
}
