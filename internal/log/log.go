// Copyright (C) 2020 Markus L. Noga
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

// Package log is a singleton log writer. Writes to stdout, and optionally
// tees to a file. Does not add prefixes, or force newlines.
package log

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"sync"
)

var mu sync.Mutex

// The optional additional file to log into
var logFile *bufio.Writer
var logFileOS *os.File

// LogAlsoToFile enables logging to file, in addition to stdout.
func LogAlsoToFile(fileName string) (err error) {
	mu.Lock()
	defer mu.Unlock()
	if logFile != nil {
		err = logFile.Flush()
		if err != nil {
			return err
		}
		err = logFileOS.Close()
		if err != nil {
			return err
		}
	}
	logFileOS, err = os.OpenFile(fileName, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0666)
	if err != nil {
		return err
	}
	logFile = bufio.NewWriter(logFileOS)
	return nil
}

func Print(args ...interface{}) (n int, err error) {
	mu.Lock()
	defer mu.Unlock()
	n, err = fmt.Print(args...)
	if err != nil || logFile == nil {
		return n, err
	}
	return fmt.Fprint(logFile, args...)
}

func Println(args ...interface{}) (n int, err error) {
	mu.Lock()
	defer mu.Unlock()
	n, err = fmt.Println(args...)
	if err != nil || logFile == nil {
		return n, err
	}
	return fmt.Fprintln(logFile, args...)
}

func Printf(format string, args ...interface{}) (n int, err error) {
	mu.Lock()
	defer mu.Unlock()
	n, err = fmt.Printf(format, args...)
	if err != nil || logFile == nil {
		return n, err
	}
	return fmt.Fprintf(logFile, format, args...)
}

func Fatal(args ...interface{}) {
	mu.Lock()
	fmt.Println(args...)
	if logFile != nil {
		fmt.Fprint(logFile, args...)
		logFile.Flush()
		logFileOS.Close()
	}
	mu.Unlock()
	os.Exit(1)
}

func Fatalf(format string, args ...interface{}) {
	mu.Lock()
	fmt.Printf(format, args...)
	if logFile != nil {
		fmt.Fprintf(logFile, format, args...)
		logFile.Flush()
		logFileOS.Close()
	}
	mu.Unlock()
	os.Exit(1)
}

func Sync() {
	mu.Lock()
	defer mu.Unlock()
	if logFile != nil {
		logFile.Flush()
		logFileOS.Sync()
	}
}

// Buffer is a per-worker log buffer. The batch driver gives each in-flight
// target its own Buffer so concurrent targets never interleave mid-line;
// Flush writes the accumulated text through to the shared writer atomically.
type Buffer struct {
	buf bytes.Buffer
}

func (b *Buffer) Printf(format string, args ...interface{}) {
	fmt.Fprintf(&b.buf, format, args...)
}

func (b *Buffer) Println(args ...interface{}) {
	fmt.Fprintln(&b.buf, args...)
}

// Write implements io.Writer, so a Buffer can be passed anywhere a plain
// log writer is expected, such as the FITS reader's diagnostic output.
func (b *Buffer) Write(p []byte) (int, error) {
	return b.buf.Write(p)
}

// Flush writes the buffered text to the shared log writer and resets the
// buffer, to be called when a worker joins after finishing its target.
func (b *Buffer) Flush() {
	mu.Lock()
	defer mu.Unlock()
	fmt.Print(b.buf.String())
	if logFile != nil {
		fmt.Fprint(logFile, b.buf.String())
	}
	b.buf.Reset()
}
