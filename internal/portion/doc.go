// Copyright 2025 SirSeer, LLC
//
// Licensed under the Business Source License 1.1 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://mariadb.com/bsl11
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package portion implements the cursor state machine that drives a chunked
// RDS log download.
//
// RDS returns a log file in portions. Each request names a continuation
// marker and a maximum number of lines. When the requested lines exceed the
// service's size limit the payload is cut short and ends with a truncation
// notice instead of the real data. The cursor reacts by asking again from the
// same marker for half the lines it actually received, and returns to the
// full window once a portion arrives intact.
//
// Step is a pure function of the cursor and the latest portion, so the whole
// policy can be tested without a network:
//
//	c := portion.NewCursor(portion.DefaultInitialLines)
//	for {
//	    p := download(c.Marker, c.Lines)
//	    d, next, err := portion.Step(c, p)
//	    if err != nil {
//	        return err
//	    }
//	    if d.Write {
//	        write(p.Data)
//	    }
//	    if d.State == portion.StateDone {
//	        return nil
//	    }
//	    c = next
//	}
package portion
