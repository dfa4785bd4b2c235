/*
 * Copyright 2025 tomoncle.
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package utils

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLogLevel(t *testing.T) {
	assert.Equal(t, logrus.DebugLevel, ParseLogLevel("DEBUG"))
	assert.Equal(t, logrus.WarnLevel, ParseLogLevel(" warning "))
	assert.Equal(t, logrus.InfoLevel, ParseLogLevel(""))
	assert.Equal(t, logrus.InfoLevel, ParseLogLevel("verbose"))
}

func TestEnvDefaults(t *testing.T) {
	t.Setenv("DOCREPO_TEST_STR", " value ")
	t.Setenv("DOCREPO_TEST_BOOL", "yes")
	t.Setenv("DOCREPO_TEST_BAD", "maybe")

	assert.Equal(t, "value", EnvDefaultString("DOCREPO_TEST_STR", "def"))
	assert.Equal(t, "def", EnvDefaultString("DOCREPO_TEST_MISSING", "def"))
	assert.True(t, EnvDefaultBool("DOCREPO_TEST_BOOL", false))
	assert.True(t, EnvDefaultBool("DOCREPO_TEST_BAD", true))
	assert.False(t, EnvDefaultBool("DOCREPO_TEST_MISSING", false))
}

func TestNewLoggerRegistersOnce(t *testing.T) {
	a := NewLogger("registry-test")
	b := NewLogger("registry-test")
	assert.Same(t, a, b)

	assert.True(t, SetLoggerLevel("registry-test", "error"))
	assert.Equal(t, logrus.ErrorLevel, a.GetLevel())
	assert.False(t, SetLoggerLevel("no-such-logger", "error"))
}

func TestConsoleFormatterIncludesFields(t *testing.T) {
	f := &ConsoleFormatter{LoggerName: "TEST", NameWidth: 10}
	entry := logrus.NewEntry(logrus.New()).WithFields(logrus.Fields{"b": 2, "a": "x"})
	entry.Message = "hello"
	entry.Level = logrus.InfoLevel

	out, err := f.Format(entry)
	require.NoError(t, err)
	s := string(out)
	assert.Contains(t, s, "hello")
	assert.Contains(t, s, "TEST")
	assert.Less(t, bytes.Index(out, []byte("a")), bytes.LastIndex(out, []byte("b")))
}

func TestJSONLogFormatter(t *testing.T) {
	f := &JSONLogFormatter{LoggerName: "TEST"}
	entry := logrus.NewEntry(logrus.New()).WithField("error", errors.New("boom"))
	entry.Message = "failed"
	entry.Level = logrus.ErrorLevel

	out, err := f.Format(entry)
	require.NoError(t, err)

	var rec map[string]interface{}
	require.NoError(t, json.Unmarshal(out, &rec))
	assert.Equal(t, "error", rec["level"])
	assert.Equal(t, "TEST", rec["logger"])
	assert.Equal(t, "failed", rec["message"])
	assert.Equal(t, "boom", rec["fields"].(map[string]interface{})["error"])
}
