/*
Package server exposes recurring slot previews and stored slots over HTTP.

# Basic Usage

	cal, _ := datetime.LoadLocal("Asia/Tokyo")
	engine := recurrence.NewEngine(cal)
	srv, err := server.New(memory.New(), engine, server.WithLocale(slot.LocaleJapanese))
	if err != nil {
		log.Fatal(err)
	}
	http.ListenAndServe(":8080", srv)

# Endpoints

  - POST /api/recurrence/preview - validate and expand a recurrence form
  - POST /api/recurrence/preview.ics - the same preview as text/calendar
  - GET /api/opportunities/{id}/slots - stored slots grouped by month
  - POST /graphql - the bulk slot update and hosting status mutations
  - GET /health

The preview body mirrors the recurrence sheet:

	{
	  "baseStartAt": "2025-01-01T10:00",
	  "baseEndAt": "2025-01-01T12:00",
	  "type": "weekly",
	  "selectedDays": [1, 3, 5],
	  "hasEndDate": true,
	  "endDate": "2025-01-31"
	}

Timestamps without an offset are read in the engine's calendar location.
Responses carry RFC 3339 timestamps in that location.

# GraphQL

The /graphql endpoint accepts the documents sent by package slotclient. It
dispatches on operationName, falling back to the root field named in the
query. Selection sets are not interpreted. Failures are reported in the
errors member with extensions.code set to BAD_USER_INPUT, NOT_FOUND,
UNKNOWN_OPERATION or INTERNAL_SERVER_ERROR.
*/
package server
