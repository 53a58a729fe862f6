// Copyright (C) 2026 Ginkgo AI
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

/*
This file bridges the build system and the runtime engine. It uses the Go
embed package to bake municipal_classification_rules.yaml directly into the
compiled binary, so the classification policy is immutable at runtime and
travels with the executable.
*/

package enforcement

import (
	_ "embed"
)

// ClassificationRules holds the raw bytes of the
// 'municipal_classification_rules.yaml' file.
//
// Populated at compile time via the Go 'embed' directive. Baking the YAML
// into the binary ensures the rules cannot be tampered with on the host
// filesystem without recompiling the application.
//
// Usage:
//
//	err := yaml.Unmarshal(enforcement.ClassificationRules, &targetStruct)
//
//go:embed municipal_classification_rules.yaml
var ClassificationRules []byte
