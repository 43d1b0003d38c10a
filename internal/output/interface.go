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

package output

// LogWriter receives the accepted portions of one remote log file, in order.
type LogWriter interface {
	// Write appends a portion to the destination.
	Write(data string) error

	// Close releases the destination. Portions already written stay on disk.
	Close() error
}

// Opener creates the LogWriter for a remote log file.
type Opener func(outputDir, remoteName string) (LogWriter, error)

// OpenFile is the Opener that writes to local files.
func OpenFile(outputDir, remoteName string) (LogWriter, error) {
	return NewLogFileWriter(outputDir, remoteName)
}
