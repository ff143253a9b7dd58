// Package domain contains the core business entities of the task board:
// tasks, their status columns, and the validation rules that apply to them
// independently of storage or transport.
package domain
