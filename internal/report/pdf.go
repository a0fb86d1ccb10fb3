// Package report рендерит PDF-отчёты для выгрузки в чат и API.
// Встроенные шрифты fpdf покрывают только latin-1, поэтому отчёты
// собираются на английском.
package report

import (
	"bytes"
	"fmt"
	"time"

	"github.com/go-pdf/fpdf"
	"github.com/pkg/errors"

	"github.com/margiana/cargotrack/internal/models"
)

const reportDateLayout = "02.01.2006"

func fmtDate(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Format(reportDateLayout)
}

func newDoc(title string) *fpdf.Fpdf {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(title, true)
	pdf.SetAutoPageBreak(true, 15)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(0, 10, title, "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "", 9)
	pdf.CellFormat(0, 6, "Generated "+time.Now().UTC().Format("02.01.2006 15:04")+" UTC", "", 1, "C", false, 0, "")
	pdf.Ln(4)
	return pdf
}

func sectionHeader(pdf *fpdf.Fpdf, text string) {
	pdf.SetFont("Helvetica", "B", 12)
	pdf.CellFormat(0, 8, text, "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
}

func kvRow(pdf *fpdf.Fpdf, key, value string) {
	pdf.SetFont("Helvetica", "B", 10)
	pdf.CellFormat(55, 6, key, "", 0, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(0, 6, value, "", 1, "L", false, 0, "")
}

// OrderPDF — детальный отчёт по одному заказу.
func OrderPDF(o *models.Order, containers []*models.Container, tasks []*models.Task) ([]byte, error) {
	if o == nil {
		return nil, errors.New("order is required")
	}

	pdf := newDoc("Order Report: " + o.OrderNumber)

	sectionHeader(pdf, "General")
	kvRow(pdf, "Client", o.ClientName)
	kvRow(pdf, "Status", string(o.Status))
	kvRow(pdf, "Route", o.Route)
	kvRow(pdf, "Transit port", o.TransitPort)
	kvRow(pdf, "Goods", o.GoodsType)
	kvRow(pdf, "Document", o.DocumentNumber)
	kvRow(pdf, "Containers", fmt.Sprintf("%d", o.ContainerCount))
	kvRow(pdf, "Total weight, kg", fmt.Sprintf("%.0f", o.TotalWeight))
	kvRow(pdf, "Total volume, m3", fmt.Sprintf("%.1f", o.TotalVolume))
	pdf.Ln(3)

	sectionHeader(pdf, "Timeline")
	kvRow(pdf, "Created", fmtDate(o.CreationDate))
	kvRow(pdf, "Departure (China)", fmtDate(o.DepartureDate))
	kvRow(pdf, "Arrival (Iran)", fmtDate(o.ArrivalIranDate))
	kvRow(pdf, "Truck loading", fmtDate(o.TruckLoadingDate))
	kvRow(pdf, "Arrival (Turkmenistan)", fmtDate(o.ArrivalTurkmenistanDate))
	kvRow(pdf, "Client receiving", fmtDate(o.ClientReceivingDate))
	kvRow(pdf, "ETA", fmtDate(o.ETADate))
	pdf.Ln(3)

	if len(containers) > 0 {
		sectionHeader(pdf, "Containers")
		pdf.SetFont("Helvetica", "B", 9)
		pdf.CellFormat(40, 6, "Number", "1", 0, "L", false, 0, "")
		pdf.CellFormat(35, 6, "Type", "1", 0, "L", false, 0, "")
		pdf.CellFormat(30, 6, "Weight, kg", "1", 0, "R", false, 0, "")
		pdf.CellFormat(30, 6, "Volume, m3", "1", 0, "R", false, 0, "")
		pdf.CellFormat(0, 6, "Departure", "1", 1, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 9)
		for _, c := range containers {
			pdf.CellFormat(40, 6, c.ContainerNumber, "1", 0, "L", false, 0, "")
			pdf.CellFormat(35, 6, c.ContainerType, "1", 0, "L", false, 0, "")
			pdf.CellFormat(30, 6, fmt.Sprintf("%.0f", c.Weight), "1", 0, "R", false, 0, "")
			pdf.CellFormat(30, 6, fmt.Sprintf("%.1f", c.Volume), "1", 0, "R", false, 0, "")
			pdf.CellFormat(0, 6, fmtDate(c.DepartureDate), "1", 1, "L", false, 0, "")
		}
		pdf.Ln(3)
	}

	if len(tasks) > 0 {
		sectionHeader(pdf, "Tasks")
		for _, t := range tasks {
			line := fmt.Sprintf("[%s] %s (%s)", t.Status, t.Description, t.Priority)
			if t.DueDate != nil {
				line += " due " + fmtDate(t.DueDate)
			}
			pdf.CellFormat(0, 6, line, "", 1, "L", false, 0, "")
		}
		pdf.Ln(3)
	}

	sectionHeader(pdf, "Documents")
	kvRow(pdf, "Loading photo", yesNo(o.HasLoadingPhoto))
	kvRow(pdf, "Local charges", yesNo(o.HasLocalCharges))
	kvRow(pdf, "TLX", yesNo(o.HasTex))

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, errors.Wrap(err, "render pdf")
	}
	return buf.Bytes(), nil
}

// SummaryPDF — сводка по статистике, активным и завершённым заказам.
func SummaryPDF(stats *models.Statistics, active, completed []*models.Order) ([]byte, error) {
	if stats == nil {
		return nil, errors.New("statistics is required")
	}

	pdf := newDoc(fmt.Sprintf("Summary Report (%d days)", stats.PeriodDays))

	sectionHeader(pdf, "Totals")
	kvRow(pdf, "Orders in period", fmt.Sprintf("%d", stats.TotalOrders))
	kvRow(pdf, "Completed", fmt.Sprintf("%d", stats.CompletedOrders))
	kvRow(pdf, "Active now", fmt.Sprintf("%d", stats.ActiveOrders))
	kvRow(pdf, "Containers", fmt.Sprintf("%d", stats.TotalContainers))
	kvRow(pdf, "Total weight, kg", fmt.Sprintf("%.0f", stats.TotalWeight))
	kvRow(pdf, "Total volume, m3", fmt.Sprintf("%.1f", stats.TotalVolume))
	pdf.Ln(4)

	if len(active) > 0 {
		sectionHeader(pdf, "Active orders")
		pdf.SetFont("Helvetica", "B", 9)
		pdf.CellFormat(35, 6, "Order", "1", 0, "L", false, 0, "")
		pdf.CellFormat(45, 6, "Client", "1", 0, "L", false, 0, "")
		pdf.CellFormat(45, 6, "Status", "1", 0, "L", false, 0, "")
		pdf.CellFormat(20, 6, "Cont.", "1", 0, "R", false, 0, "")
		pdf.CellFormat(0, 6, "ETA", "1", 1, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 9)
		for _, o := range active {
			pdf.CellFormat(35, 6, o.OrderNumber, "1", 0, "L", false, 0, "")
			pdf.CellFormat(45, 6, o.ClientName, "1", 0, "L", false, 0, "")
			pdf.CellFormat(45, 6, string(o.Status), "1", 0, "L", false, 0, "")
			pdf.CellFormat(20, 6, fmt.Sprintf("%d", o.ContainerCount), "1", 0, "R", false, 0, "")
			pdf.CellFormat(0, 6, fmtDate(o.ETADate), "1", 1, "L", false, 0, "")
		}
		pdf.Ln(4)
	}

	if len(completed) > 0 {
		sectionHeader(pdf, "Completed in period")
		pdf.SetFont("Helvetica", "B", 9)
		pdf.CellFormat(35, 6, "Order", "1", 0, "L", false, 0, "")
		pdf.CellFormat(55, 6, "Client", "1", 0, "L", false, 0, "")
		pdf.CellFormat(20, 6, "Cont.", "1", 0, "R", false, 0, "")
		pdf.CellFormat(0, 6, "Received", "1", 1, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 9)
		for _, o := range completed {
			pdf.CellFormat(35, 6, o.OrderNumber, "1", 0, "L", false, 0, "")
			pdf.CellFormat(55, 6, o.ClientName, "1", 0, "L", false, 0, "")
			pdf.CellFormat(20, 6, fmt.Sprintf("%d", o.ContainerCount), "1", 0, "R", false, 0, "")
			pdf.CellFormat(0, 6, fmtDate(o.ClientReceivingDate), "1", 1, "L", false, 0, "")
		}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, errors.Wrap(err, "render pdf")
	}
	return buf.Bytes(), nil
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
