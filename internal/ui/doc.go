// Package ui holds every user-visible string and reply keyboard so wording
// can change in one place.
package ui
