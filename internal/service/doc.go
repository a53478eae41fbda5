// Package service holds the user business rules shared by the command and
// query packages: minimum-age eligibility (AgeGate), birth-date range
// validation and matching, and the tagged Error kinds that handlers map to
// HTTP status codes.
package service
