// Copyright 2025 The pbpctrl Authors
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package maestro

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/pbpctrl/maestro/client"
)

func TestCatalogServiceIDsAgree(t *testing.T) {
	for _, m := range Methods() {
		assert.Equal(t, ServiceName, m.Service)
		assert.NotZero(t, m.ServiceID())
	}
}

func TestCatalogStreamKind(t *testing.T) {
	assert.Equal(t, client.ServerStream, SubscribeRuntimeInfo.Kind)
	assert.Equal(t, client.Unary, GetSoftwareInfo.Kind)
}

func TestMethodsListsEveryCatalogEntry(t *testing.T) {
	assert.Len(t, Methods(), 7)
}
