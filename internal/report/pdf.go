package report

import (
	"bytes"
	"fmt"
	"time"

	"github.com/phpdave11/gofpdf"

	"caixa/internal/core"
)

func buildPDF(p Params, rows []core.Transaction, sum core.Summary) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(p.Title(), true)
	pdf.AddPage()

	// gofpdf's core fonts are cp1252; translate the pt-BR accents.
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	company := p.Company
	if company == "" {
		company = "Relatório"
	}
	pdf.SetFont("Helvetica", "B", 16)
	pdf.Cell(0, 10, tr(company))
	pdf.Ln(8)

	pdf.SetFont("Helvetica", "", 10)
	pdf.Cell(0, 6, tr(fmt.Sprintf("Gerado em %s", time.Now().Format("02/01/2006"))))
	pdf.Ln(10)

	pdf.SetFont("Helvetica", "B", 13)
	pdf.Cell(0, 8, tr(p.Title()))
	pdf.Ln(10)

	pdf.SetFont("Helvetica", "", 11)
	pdf.Cell(0, 7, tr(fmt.Sprintf("Total de Vendas: %s", sum.TotalSales.BRL())))
	pdf.Ln(6)
	pdf.Cell(0, 7, tr(fmt.Sprintf("Total de Compras: %s", sum.TotalPurchases.BRL())))
	pdf.Ln(6)
	pdf.Cell(0, 7, tr(fmt.Sprintf("Lucro: %s", sum.Profit.BRL())))
	pdf.Ln(10)

	pdf.SetFont("Helvetica", "B", 11)
	pdf.Cell(28, 7, tr("Data"))
	pdf.Cell(92, 7, tr("Descrição"))
	pdf.Cell(28, 7, tr("Tipo"))
	pdf.Cell(42, 7, tr("Valor"))
	pdf.Ln(7)

	pdf.SetFont("Helvetica", "", 10)
	for _, tx := range rows {
		amount := tx.Amount
		if tx.Type == core.Purchase {
			amount = core.Money{Cents: -amount.Cents}
		}
		pdf.Cell(28, 6, tx.Date.Display())
		pdf.Cell(92, 6, tr(tx.Description))
		pdf.Cell(28, 6, tr(tx.Type.Label()))
		pdf.Cell(42, 6, tr(amount.BRL()))
		pdf.Ln(6)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
