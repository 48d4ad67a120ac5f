package response_test

import (
	"fmt"
	"time"

	"github.com/kart-io/sentinel-kb/pkg/errors"
	"github.com/kart-io/sentinel-kb/pkg/utils/response"
)

func Example_manualPooling() {
	resp := response.Acquire()
	defer response.Release(resp)

	resp.Code = 0
	resp.Message = "success"
	resp.Data = map[string]string{"draft_id": "draft-01HXZ"}
	resp.RequestID = "req-456"
	resp.Timestamp = time.Now().UnixMilli()

	fmt.Printf("Response: code=%d, message=%s\n", resp.Code, resp.Message)
	// Output: Response: code=0, message=success
}

func Example_helperFunctions() {
	resp1 := response.Success(map[string]string{"status": "staged"})
	defer response.Release(resp1)
	fmt.Printf("Success: %v\n", resp1.IsSuccess())

	resp2 := response.Err(errors.ErrNotFound)
	defer response.Release(resp2)
	fmt.Printf("Error: %s\n", resp2.Message)

	resp3 := response.ErrorWithCode(400, "chunk_size out of range")
	defer response.Release(resp3)
	fmt.Printf("Custom error: %s\n", resp3.Message)

	// Output:
	// Success: true
	// Error: Resource not found
	// Custom error: chunk_size out of range
}

func Example_errorHandling() {
	func() {
		resp := response.Success("draft finalized")
		defer response.Release(resp)

		if resp.IsSuccess() {
			fmt.Println("Success:", resp.Message)
		}
	}()

	func() {
		resp := response.Err(errors.ErrInternal)
		defer response.Release(resp)

		if !resp.IsSuccess() {
			fmt.Println("Error:", resp.Message)
		}
	}()

	// Output:
	// Success: success
	// Error: Internal server error
}

func Example_pagination() {
	documents := []map[string]interface{}{
		{"id": "doc-1", "title": "Onboarding"},
		{"id": "doc-2", "title": "Runbook"},
		{"id": "doc-3", "title": "API Guide"},
	}

	resp := response.Page(documents, 100, 1, 10)
	defer response.Release(resp)

	if pageData, ok := resp.Data.(*response.PageData); ok {
		fmt.Printf("Page %d of %d\n", pageData.Page, pageData.TotalPages)
	}

	// Output: Page 1 of 10
}

func Example_errorWithLanguage() {
	resp1 := response.Err(errors.ErrNotFound)
	defer response.Release(resp1)
	fmt.Println("EN:", resp1.Message)

	resp2 := response.ErrWithLang(errors.ErrNotFound, "zh")
	defer response.Release(resp2)
	fmt.Println("ZH:", resp2.Message)

	// Output:
	// EN: Resource not found
	// ZH: 资源不存在
}

func Example_concurrentRequests() {
	process := func(id int) {
		resp := response.Acquire()
		defer response.Release(resp)

		resp.Code = 0
		resp.Message = "success"
		resp.Data = map[string]interface{}{"request_id": id}
		_ = resp.HTTPStatus()
	}

	done := make(chan bool, 10)
	for i := 0; i < 10; i++ {
		go func(id int) {
			process(id)
			done <- true
		}(i)
	}
	for i := 0; i < 10; i++ {
		<-done
	}

	fmt.Println("Processed 10 concurrent requests")
	// Output: Processed 10 concurrent requests
}
