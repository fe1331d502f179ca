// Package museum provides an HTTP client for the museum service API.
//
// # Overview
//
// The client covers the endpoints docent needs: the exhibit catalogue,
// favourite and rating mutations, route creation and maintenance, the
// coordinate endpoints used during navigation, and the batch sync endpoint
// that receives queued offline operations.
//
// # Error Classification
//
// Every call returns one of three kinds of error:
//
//   - *ConnectivityError: no response was received (connection refused, DNS
//     failure, timeout, cancelled context). Callers treat these as transient.
//   - *RejectionError: the server answered with status >= 400. errors.Is
//     matches ErrValidation, ErrAuthRequired, ErrNotFound or ErrServer
//     depending on the status code.
//   - a plain wrapped error for local failures (request encoding, response
//     decoding).
//
// Use IsConnectivity and IsRejection rather than inspecting status codes.
//
// # Request Handling
//
// All requests carry Accept: application/json and User-Agent: docent/0.1,
// use the caller's context for cancellation, and time out after 10 seconds.
// Authentication headers are attached by the transport in front of the
// service and are not handled here.
package museum
