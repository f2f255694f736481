// playlistd - multi-display video playlist orchestrator
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/playlistd

package playlist

import (
	"bytes"
	"context"
	"encoding/csv"
	"strconv"
	"strings"

	"github.com/tomtom215/playlistd/internal/errs"
	"github.com/tomtom215/playlistd/internal/models"
)

var csvHeader = []string{"Search Term", "Video Count", "Format"}

// ImportCSV parses rows with columns Search Term, Video Count, Format
// into Blocks; row order becomes block_order. Rejects with
// errs.ErrMalformedCSV on missing required columns or zero data rows
// (spec §4.3).
func ImportCSV(data []byte) ([]models.Block, error) {
	r := csv.NewReader(bytes.NewReader(data))
	records, err := r.ReadAll()
	if err != nil {
		return nil, errs.Wrap(errs.KindBadInput, "parse csv", errs.ErrMalformedCSV)
	}
	if len(records) < 2 {
		return nil, errs.Wrap(errs.KindBadInput, "csv has no data rows", errs.ErrMalformedCSV)
	}

	header := records[0]
	col := map[string]int{}
	for i, h := range header {
		col[strings.TrimSpace(h)] = i
	}
	termIdx, ok1 := col[csvHeader[0]]
	countIdx, ok2 := col[csvHeader[1]]
	formatIdx, ok3 := col[csvHeader[2]]
	if !ok1 || !ok2 || !ok3 {
		return nil, errs.Wrap(errs.KindBadInput, "csv missing required columns", errs.ErrMalformedCSV)
	}

	blocks := make([]models.Block, 0, len(records)-1)
	for i, row := range records[1:] {
		count, err := strconv.Atoi(strings.TrimSpace(row[countIdx]))
		if err != nil || count <= 0 {
			return nil, errs.Wrap(errs.KindBadInput, "invalid video count in csv row "+strconv.Itoa(i+1), errs.ErrMalformedCSV)
		}
		format := models.Format(strings.ToLower(strings.TrimSpace(row[formatIdx])))
		if format == "" {
			format = models.FormatMixed
		}
		if format != models.FormatMixed && format != models.FormatWide && format != models.FormatTall {
			return nil, errs.Wrap(errs.KindBadInput, "invalid format in csv row "+strconv.Itoa(i+1), errs.ErrMalformedCSV)
		}
		blocks = append(blocks, models.Block{
			BlockOrder: i,
			SearchTerm: row[termIdx],
			VideoCount: count,
			Format:     format,
			FetchMode:  models.FetchModeNewest,
		})
	}
	return blocks, nil
}

// ExportCSV reads a Playlist's Blocks in block_order and renders them
// in the same shape accepted by ImportCSV (spec §4.3).
func (s *Store) ExportCSV(ctx context.Context, playlistID string) ([]byte, error) {
	rows, err := s.db.Conn().QueryContext(ctx, `
		SELECT search_term, video_count, format FROM blocks WHERE playlist_id = ? ORDER BY block_order
	`, playlistID)
	if err != nil {
		return nil, errs.Wrap(errs.KindTransient, "query blocks for export", err)
	}
	defer rows.Close()

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(csvHeader); err != nil {
		return nil, errs.Wrap(errs.KindFatal, "write csv header", err)
	}
	for rows.Next() {
		var term, format string
		var count int
		if err := rows.Scan(&term, &count, &format); err != nil {
			return nil, errs.Wrap(errs.KindTransient, "scan block for export", err)
		}
		if err := w.Write([]string{term, strconv.Itoa(count), format}); err != nil {
			return nil, errs.Wrap(errs.KindFatal, "write csv row", err)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, errs.Wrap(errs.KindTransient, "iterate blocks for export", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, errs.Wrap(errs.KindFatal, "flush csv writer", err)
	}
	return buf.Bytes(), nil
}
