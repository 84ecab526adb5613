package fills

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/pierrec/lz4/v4"

	"github.com/vigil-data/vigil/internal/common"
)

// Record is one flattened fill: the upstream fill fields plus the injected
// user address and block time. The loose map shape is confined to the decode
// stage; the normalizer is the chokepoint that produces the rigid frame.
type Record map[string]any

// blockRecord is one decoded NDJSON line of a raw partition.
type blockRecord struct {
	BlockTime int64        `json:"block_time"`
	Events    []blockEvent `json:"events"`
}

// blockEvent is a [user, fill] pair as the node archives encode it.
type blockEvent struct {
	User string
	Fill map[string]any
}

func (e *blockEvent) UnmarshalJSON(data []byte) error {
	var pair [2]json.RawMessage
	if err := json.Unmarshal(data, &pair); err != nil {
		return err
	}
	if err := json.Unmarshal(pair[0], &e.User); err != nil {
		return fmt.Errorf("event user: %w", err)
	}
	dec := json.NewDecoder(bytes.NewReader(pair[1]))
	dec.UseNumber()
	if err := dec.Decode(&e.Fill); err != nil {
		return fmt.Errorf("event fill: %w", err)
	}
	return nil
}

// Decode decompresses a raw LZ4 partition and flattens its per-block event
// arrays into one record per fill, preserving block order and within-block
// event order. Any malformed line fails the whole partition: partitions are
// small enough that partial ingestion creates worse ambiguity than
// re-fetching.
func Decode(raw []byte) ([]Record, error) {
	decompressed, err := decompressLZ4(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: lz4 decompress: %v", common.ErrCorruptData, err)
	}

	var records []Record
	scanner := bufio.NewScanner(bytes.NewReader(decompressed))
	scanner.Buffer(make([]byte, 1024*1024), 64*1024*1024)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		var block blockRecord
		dec := json.NewDecoder(bytes.NewReader(line))
		dec.UseNumber()
		if err := dec.Decode(&block); err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", common.ErrCorruptData, lineNo, err)
		}

		for _, ev := range block.Events {
			record := make(Record, len(ev.Fill)+2)
			for k, v := range ev.Fill {
				record[k] = v
			}
			record["user"] = ev.User
			record["block_time"] = block.BlockTime
			records = append(records, record)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("%w: scan: %v", common.ErrCorruptData, err)
	}

	return records, nil
}

func decompressLZ4(raw []byte) ([]byte, error) {
	r := lz4.NewReader(bytes.NewReader(raw))
	var out bytes.Buffer
	if _, err := io.Copy(&out, r); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}
