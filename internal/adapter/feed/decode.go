package feed

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/couchcryptid/quake-overlay-service/internal/domain"
)

// ErrUnrecognizedPayload is returned when a feed body holds no record list.
var ErrUnrecognizedPayload = errors.New("unrecognized feed payload")

// envelope covers the two wrapped shapes: {"data":[...]} and
// {"data":{"spot_infos":[...]}}.
type envelope struct {
	Data json.RawMessage `json:"data"`
}

type spotInfos struct {
	SpotInfos []domain.RawQuakeRecord `json:"spot_infos"`
}

// DecodeRecords reads a feed body: a bare array of records or one of the
// wrapped shapes. Numbers are kept as json.Number so millisecond
// timestamps survive intact.
func DecodeRecords(r io.Reader) ([]domain.RawQuakeRecord, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil, ErrUnrecognizedPayload
	}

	if raw[0] == '[' {
		return decodeList(raw)
	}

	var env envelope
	if err := decodeJSON(raw, &env); err != nil {
		return nil, err
	}
	data := bytes.TrimSpace(env.Data)
	switch {
	case len(data) == 0 || bytes.Equal(data, []byte("null")):
		return nil, ErrUnrecognizedPayload
	case data[0] == '[':
		return decodeList(data)
	case data[0] == '{':
		var spots spotInfos
		if err := decodeJSON(data, &spots); err != nil {
			return nil, err
		}
		if spots.SpotInfos == nil {
			return nil, ErrUnrecognizedPayload
		}
		return spots.SpotInfos, nil
	default:
		return nil, fmt.Errorf("%w: data is %.16s", ErrUnrecognizedPayload, data)
	}
}

// LoadRecordsFile reads a feed snapshot from disk.
func LoadRecordsFile(path string) ([]domain.RawQuakeRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open feed file: %w", err)
	}
	defer f.Close()

	records, err := DecodeRecords(f)
	if err != nil {
		return nil, fmt.Errorf("decode feed file %s: %w", path, err)
	}
	return records, nil
}

// LoadCatalog reads the historical quake catalog, a JSON array of records.
func LoadCatalog(path string) ([]domain.HistoricalQuake, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}

	var catalog []domain.HistoricalQuake
	if err := decodeJSON(raw, &catalog); err != nil {
		return nil, fmt.Errorf("decode catalog %s: %w", path, err)
	}
	return catalog, nil
}

func decodeList(raw []byte) ([]domain.RawQuakeRecord, error) {
	records := []domain.RawQuakeRecord{}
	if err := decodeJSON(raw, &records); err != nil {
		return nil, err
	}
	return records, nil
}

func decodeJSON(raw []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	return dec.Decode(v)
}
