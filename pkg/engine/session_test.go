// Copyright © 2019 mg
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
// THE SOFTWARE.

package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"ispengine/pkg/ispierr"
	tmock "ispengine/pkg/transport/mock"
)

func TestScenarioS5InitializeResync(t *testing.T) {
	flash := newPagedFlash(8, 4)
	p := newTestPart(flash)
	p.ID = "ATmegaX"

	prog := tmock.New()
	prog.ProgramEnableResults = []bool{false, false, false, true}
	eng := New(prog, p)

	err := eng.Initialize(context.Background())
	require.NoError(t, err)
	require.Equal(t, 4, prog.ProgramEnableCalls)
	require.Equal(t, 3, prog.PulseCounts["sck"])
}

func TestInitializeNotRespondingAfter32Attempts(t *testing.T) {
	flash := newPagedFlash(8, 4)
	p := newTestPart(flash)
	p.ID = "ATmegaX"

	prog := tmock.New()
	results := make([]bool, 40)
	prog.ProgramEnableResults = results
	eng := New(prog, p)

	err := eng.Initialize(context.Background())
	require.Error(t, err)
	var notResponding *ispierr.NotResponding
	require.ErrorAs(t, err, &notResponding)
	require.Equal(t, 32, notResponding.Attempts)
	require.Equal(t, 32, prog.ProgramEnableCalls)
	require.Equal(t, 32, prog.PulseCounts["sck"])
}

func TestInitializeAT90S1200SkipsEchoCheck(t *testing.T) {
	flash := newPagedFlash(8, 4)
	p := newTestPart(flash)
	p.ID = "AT90S1200"

	prog := tmock.New()
	prog.ProgramEnableResults = []bool{false}
	eng := New(prog, p)

	err := eng.Initialize(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, prog.ProgramEnableCalls)
	require.Equal(t, 0, prog.PulseCounts["sck"])
}
