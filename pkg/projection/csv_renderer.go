package projection

import (
	"bytes"
	"encoding/csv"
	"strconv"

	log "github.com/sirupsen/logrus"
)

type Renderer interface {
	RenderProjection(projection Projection) (string, error)
	RenderAnnual(balances []AnnualBalance) (string, error)
}

type CsvRendererImpl struct {
}

func NewCsvRenderer() *CsvRendererImpl {
	return &CsvRendererImpl{}
}

// RenderProjection writes one row per month with a balance and an asset column per scenario.
func (r *CsvRendererImpl) RenderProjection(projection Projection) (string, error) {
	header := make([]string, 0, 2+2*len(projection.Scenarios))
	header = append(header, "Month", "Index")
	for _, ref := range projection.Scenarios {
		header = append(header, ref.Name+" balance", ref.Name+" asset")
	}

	data := make([][]string, 0, 1+len(projection.Months))
	data = append(data, header)
	for _, month := range projection.Months {
		row := make([]string, 0, len(header))
		row = append(row, month.Label, strconv.Itoa(month.Index))
		for _, result := range month.Results {
			row = append(row, amountToString(result.Balance), amountToString(result.Asset))
		}
		data = append(data, row)
	}
	return writeCsv(data)
}

func (r *CsvRendererImpl) RenderAnnual(balances []AnnualBalance) (string, error) {
	data := make([][]string, 0, 1+len(balances))
	data = append(data, []string{"Scenario", "Income", "Expense", "Balance", "Difference"})
	for _, balance := range balances {
		data = append(data, []string{
			balance.Scenario.Name,
			amountToString(balance.Income),
			amountToString(balance.Expense),
			amountToString(balance.Balance),
			amountToString(balance.DifferenceToBase),
		})
	}
	return writeCsv(data)
}

func writeCsv(data [][]string) (string, error) {
	var b bytes.Buffer
	writer := csv.NewWriter(&b)
	for _, row := range data {
		err := writer.Write(row)
		if err != nil {
			log.Errorf("Error writing to csv: %v", err)
			return "", err
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		log.Errorf("Error writing to csv: %v", err)
		return "", err
	}

	return b.String(), nil
}

func amountToString(amount int64) string {
	return strconv.FormatInt(amount, 10)
}
