// Package cli implements the interactive operator console: capturing stock
// adjustments, counts and sales into the offline queue, draining it to the
// authority, resolving conflicts and managing the device identity and PIN.
package cli
