// Copyright 2025 Poiesic Systems
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


package core

import (
	"fmt"
	"path/filepath"
)

// ValidatePlan validates an ImportPlan according to domain rules.
//
// Validation rules:
//   - Base names must be non-empty and unique within the plan
//   - Every base must contain at least one file
//   - File paths must be absolute and unique within their base
//
// NOT validated (checked at upload time instead):
//   - File existence and readability (files may change between scan and run)
func ValidatePlan(plan *ImportPlan) error {
	if plan == nil {
		return fmt.Errorf("%w: plan is nil", ErrInvalidPlan)
	}

	seenBases := make(map[string]struct{}, len(plan.Bases))
	for _, base := range plan.Bases {
		if base.Name == "" {
			return fmt.Errorf("%w: %w", ErrInvalidPlan, ErrEmptyBaseName)
		}
		if _, ok := seenBases[base.Name]; ok {
			return fmt.Errorf("%w: %w: %q", ErrInvalidPlan, ErrDuplicateBaseName, base.Name)
		}
		seenBases[base.Name] = struct{}{}

		if len(base.Files) == 0 {
			return fmt.Errorf("%w: %w: %q", ErrInvalidPlan, ErrEmptyBase, base.Name)
		}

		seenFiles := make(map[string]struct{}, len(base.Files))
		for _, file := range base.Files {
			if !filepath.IsAbs(file.Path) {
				return fmt.Errorf("%w: %w: %q", ErrInvalidPlan, ErrRelativePath, file.Path)
			}
			if _, ok := seenFiles[file.Path]; ok {
				return fmt.Errorf("%w: %w: %q", ErrInvalidPlan, ErrDuplicateFile, file.Path)
			}
			seenFiles[file.Path] = struct{}{}
		}
	}

	return nil
}
