// Package scanner walks an import root and maps it to knowledge bases.
//
// A root whose immediate children include directories is treated as a parent
// of several knowledge bases, one per subdirectory; a root with only files is
// itself a single knowledge base. Files are filtered by a case-insensitive
// extension allow-list, where an empty list matches everything.
package scanner
