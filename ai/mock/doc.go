// Copyright 2026 Rui Dias
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


// Package mock provides a test double implementation of ai.ModelProvider.
//
// The mock lets pipeline tests run without a live model. Responses are
// injected through function fields and every call is recorded:
//
//	// Fixed response for every call
//	provider := mock.NewProviderWithResponse(`{"facts": [{"content": "x"}]}`)
//
//	// Scripted behavior
//	provider := mock.NewProvider()
//	provider.GenerateTextFunc = func(ctx context.Context, system, user string) (string, error) {
//	    if strings.Contains(user, "chunk 2") {
//	        return "", ai.ErrProviderUnavailable
//	    }
//	    return `{"facts": []}`, nil
//	}
//
//	// Assertions
//	assert.Equal(t, 3, provider.CallCount())
package mock
