package seed

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"pharmastock/m/domain"
)

// Creator adds a medicine through the inventory service so the opening
// stock lands in the ledger.
type Creator interface {
	Create(ctx context.Context, in domain.MedicineInput) (domain.Medicine, error)
}

// Existence reports whether a medicine with the given name is already
// catalogued.
type Existence interface {
	MedicineExistsByName(ctx context.Context, name string) (bool, error)
}

// LoadCatalog ingests a CSV of name,description,category,price,quantity
// rows, skipping names already present. A missing file is not an error.
func LoadCatalog(ctx context.Context, catalog Creator, exists Existence, csvPath string) (int, error) {
	file, err := os.Open(csvPath)
	if errors.Is(err, os.ErrNotExist) {
		log.Info().Str("path", csvPath).Msg("no seed catalog found, skipping")
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("open seed catalog: %w", err)
	}
	defer file.Close()
	return load(ctx, catalog, exists, file)
}

func load(ctx context.Context, catalog Creator, exists Existence, r io.Reader) (int, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	// Skip header
	if _, err := reader.Read(); err != nil {
		if err == io.EOF {
			return 0, nil
		}
		return 0, fmt.Errorf("read seed header: %w", err)
	}

	rows := 0
	for line := 2; ; line++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			log.Warn().Err(err).Int("line", line).Msg("unable to read medicine row")
			continue
		}
		in, err := parseRow(record)
		if err != nil {
			log.Warn().Err(err).Int("line", line).Msg("skipping medicine row")
			continue
		}
		found, err := exists.MedicineExistsByName(ctx, in.Name)
		if err != nil {
			return rows, err
		}
		if found {
			continue
		}
		if _, err := catalog.Create(ctx, in); err != nil {
			log.Warn().Err(err).Str("name", in.Name).Msg("unable to seed medicine")
			continue
		}
		rows++
	}
	log.Info().Int("rows", rows).Msg("seeded medicine catalog")
	return rows, nil
}

func parseRow(record []string) (domain.MedicineInput, error) {
	if len(record) < 5 {
		return domain.MedicineInput{}, fmt.Errorf("expected 5 columns, got %d", len(record))
	}
	for i := range record {
		record[i] = strings.TrimSpace(record[i])
	}
	if record[0] == "" {
		return domain.MedicineInput{}, errors.New("empty name")
	}
	price, err := decimal.NewFromString(record[3])
	if err != nil {
		return domain.MedicineInput{}, fmt.Errorf("price %q: %w", record[3], err)
	}
	qty, err := strconv.ParseInt(record[4], 10, 64)
	if err != nil {
		return domain.MedicineInput{}, fmt.Errorf("quantity %q: %w", record[4], err)
	}
	return domain.MedicineInput{
		Name:        record[0],
		Description: record[1],
		Category:    record[2],
		Price:       price,
		Quantity:    qty,
	}, nil
}
