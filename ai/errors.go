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


package ai

import "errors"

// ErrProviderUnavailable marks a transient provider failure: the request
// never produced a usable response because the service could not be
// reached or refused the call. Jobs that hit it go back to pending
// instead of being marked failed.
var ErrProviderUnavailable = errors.New("model provider unavailable")

// ErrVisionNotSupported is returned by GenerateVision when the provider
// was built without a vision-capable model.
var ErrVisionNotSupported = errors.New("provider has no vision model configured")
