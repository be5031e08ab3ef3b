// Copyright 2025 Acnodal Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package logging sets up structured logging in a uniform way.
package logging

import (
	"os"

	"github.com/go-kit/log"
)

// Provided by ldflags during build
var (
	release string
	commit  string
	branch  string
)

// Init returns a logger configured with common settings like source
// code locations. Logs go to stderr so that they don't mix with the
// interface summaries printed on stdout.
func Init() log.Logger {
	l := log.NewJSONLogger(log.NewSyncWriter(os.Stderr))
	logger := log.With(l, "caller", log.DefaultCaller)

	logger.Log("release", release, "commit", commit, "git-branch", branch, "msg", "Starting")

	return logger
}
