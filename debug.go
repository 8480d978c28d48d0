// Copyright (c) 2021 Silvano DAL ZILIO
//
// MIT License

//go:build debug

package mtrudd

// _DEBUG enables consistency checks that panic on internal errors and counts
// accesses to the unique table.
const _DEBUG bool = true
