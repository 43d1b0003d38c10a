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

// Package output writes downloaded log files to the local output directory.
//
// Each remote log file maps to <output>/<remote name>, so the RDS layout
// ("error/postgresql.log.2024-01-01-00") is mirrored on disk. A previous copy
// of the file is removed when its writer is created, and parent directories
// are created on demand before every append. Remote names that would resolve
// outside the output directory are rejected with ErrUnsafePath.
//
// Example usage:
//
//	w, err := output.NewLogFileWriter("out", "error/postgresql.log.2024-01-01-00")
//	if err != nil {
//	    return err
//	}
//	defer w.Close()
//
//	if err := w.Write(portion.Data); err != nil {
//	    return err
//	}
//
//	fmt.Printf("Wrote %d bytes to %s\n", w.Bytes(), w.Path())
package output
