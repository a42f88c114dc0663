// SOFL Core
// Copyright (c) 2026 The SOFL Project Contributors.
// SPDX-License-Identifier: GPL-3.0-or-later
//
// This file is part of SOFL Core.
//
// SOFL Core is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// SOFL Core is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with SOFL Core.  If not, see <http://www.gnu.org/licenses/>.

package library

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/hbollon/go-edlib"
	"github.com/rs/zerolog/log"
)

// MinNameSimilarity is the Jaro-Winkler score a fuzzy name match needs.
const MinNameSimilarity = 0.8

var ErrAmbiguous = errors.New("more than one game matches")

// Match finds the game query refers to: an exact id, then a name ignoring
// case, then the closest name by Jaro-Winkler similarity.
func Match(records []Record, query string) (Record, error) {
	q := strings.TrimSpace(query)
	for i := range records {
		if records[i].GameID == q {
			return records[i], nil
		}
	}

	var exact []Record
	for i := range records {
		if strings.EqualFold(records[i].Name, q) {
			exact = append(exact, records[i])
		}
	}
	switch len(exact) {
	case 0:
	case 1:
		return exact[0], nil
	default:
		return Record{}, fmt.Errorf("%w: %q, use the game id", ErrAmbiguous, query)
	}

	type scored struct {
		rec   Record
		score float32
	}
	lq := strings.ToLower(q)
	var matches []scored
	for i := range records {
		score := edlib.JaroWinklerSimilarity(lq, strings.ToLower(records[i].Name))
		if score >= MinNameSimilarity {
			matches = append(matches, scored{rec: records[i], score: score})
		}
	}
	if len(matches) == 0 {
		return Record{}, fmt.Errorf("%w: %q", ErrNotFound, query)
	}
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].score > matches[j].score
	})
	if len(matches) > 1 && matches[0].score == matches[1].score {
		return Record{}, fmt.Errorf("%w: %q, use the game id", ErrAmbiguous, query)
	}

	log.Debug().
		Str("query", query).
		Str("match", matches[0].rec.Name).
		Float32("similarity", matches[0].score).
		Msg("fuzzy game match")
	return matches[0].rec, nil
}
