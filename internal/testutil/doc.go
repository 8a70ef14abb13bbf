// SPDX-License-Identifier: MPL-2.0

// Package testutil provides helper functions for tests that handle errors
// appropriately, reducing boilerplate and ensuring consistent error handling.
//
// Fixture trees of tool repositories are described as txtar archives and laid
// out on disk with WriteTree; MustReadFile and MustMkdirAll fail the test on
// error instead of returning it.
package testutil
