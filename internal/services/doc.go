// Package services holds the failure taxonomy shared by the remote
// clients and the sync pipeline, plus helpers for wrapping errors with
// component context and classifying them for reporting.
package services
