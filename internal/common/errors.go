package common

import "errors"

// Business logic errors
var (
	// General errors
	ErrNotFound  = errors.New("recurso no encontrado")
	ErrForbidden = errors.New("acceso denegado")

	// Chat errors
	ErrConversationNotFound = errors.New("conversación no encontrada")
	ErrMessageNotFound      = errors.New("mensaje no encontrado")
	ErrEmptyMessage         = errors.New("el mensaje no puede estar vacío")
	ErrNotParticipant       = errors.New("no eres participante de esta conversación")
	ErrDirectParticipants   = errors.New("una conversación directa requiere exactamente dos participantes")
	ErrGroupNameRequired    = errors.New("el nombre del grupo es obligatorio")

	// Resident errors
	ErrResidentNotFound = errors.New("residente no encontrado")

	// Auth errors
	ErrUnauthorized = errors.New("no autorizado")
	ErrInvalidToken = errors.New("token inválido")
	ErrExpiredToken = errors.New("token expirado")

	// Validation errors
	ErrInvalidInput = errors.New("datos de entrada inválidos")
)
