// Copyright 2026 The txindexer Authors
// This file is part of the txindexer library.
//
// The txindexer library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The txindexer library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the txindexer library. If not, see <http://www.gnu.org/licenses/>.

package indexer

import "github.com/pkg/errors"

// invariantViolation panics with a pkg/errors-wrapped, stack-carrying
// message. Per spec §7, invariant violations and other programmer
// errors (an unknown txid passed to a mutator that requires one to
// exist, reopening an already-open store) abort loudly rather than
// returning an error value a caller might silently ignore. Recover()
// at the single dispatch goroutine boundary (cmd/txindexer's driver
// loop) is what turns this into a logged Fatal instead of a process
// crash when the core is embedded as a library.
func invariantViolation(format string, args ...interface{}) {
	panic(errors.Errorf(format, args...))
}
