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

import "errors"

// Domain validation errors
var (
	// ErrInvalidPlan indicates an ImportPlan failed validation.
	ErrInvalidPlan = errors.New("invalid import plan")

	// ErrEmptyBaseName indicates a planned base has no name.
	ErrEmptyBaseName = errors.New("base name cannot be empty")

	// ErrDuplicateBaseName indicates two planned bases share a name.
	ErrDuplicateBaseName = errors.New("duplicate base name")

	// ErrEmptyBase indicates a planned base contains no files.
	ErrEmptyBase = errors.New("base contains no files")

	// ErrRelativePath indicates a file entry path is not absolute.
	ErrRelativePath = errors.New("file path must be absolute")

	// ErrDuplicateFile indicates the same path appears twice within a base.
	ErrDuplicateFile = errors.New("duplicate file in base")
)
