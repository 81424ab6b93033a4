/*
Copyright © 2020 A. Jensen <jensen.aaro@gmail.com>

This program is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

This program is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with this program. If not, see <http://www.gnu.org/licenses/>.
*/


package api

import (
	"context"
	"fmt"
	"io/ioutil"
	"net/http"

	"github.com/ajjensen13/sp500etl/internal/util"
)

// UserAgent identifies requests as coming from a desktop browser. Some sources reject other clients.
const UserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"

// RequestPage downloads the document at uri. It does not retry.
func RequestPage(ctx context.Context, client *http.Client, uri string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, util.ShortReqTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request for %s: %w", uri, err)
	}
	req.Header.Set("User-Agent", UserAgent)

	resp, err := client.Do(req)
	if err != nil {
		return nil, handleErr(fmt.Sprintf("error while requesting %s", uri), resp, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, handleErr(fmt.Sprintf("error while requesting %s", uri), resp, &StatusError{StatusCode: resp.StatusCode, Status: resp.Status})
	}

	body, err := ioutil.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("error while reading %s: %w", uri, err)
	}
	return body, nil
}
