package telegram

import (
	"telegram-account-manager/internal/domain/model"
	"telegram-account-manager/internal/domain/ports/adapter"
)

// Callback data understood by callbackRoutes.
const (
	cbAddAccount    = "add_account"
	cbMyAccounts    = "my_accounts"
	cbMainMenu      = "main_menu"
	cbSelectAccount = "select_account:"
	cbInfo          = "info:"
	cbShowCodes     = "show_codes:"
	cbExport        = "export:"
	cbDelete        = "delete:"
)

func (r *RealTelegramBotAdapter) mainMenuRows() [][]adapter.InlineButton {
	return [][]adapter.InlineButton{
		{{Text: r.translator.T("btn_add_account"), Data: cbAddAccount}},
		{{Text: r.translator.T("btn_my_accounts"), Data: cbMyAccounts}},
	}
}

func (r *RealTelegramBotAdapter) accountsRows(accounts []model.AccountStatus) [][]adapter.InlineButton {
	rows := make([][]adapter.InlineButton, 0, len(accounts)+1)
	for _, a := range accounts {
		icon := "❌"
		if a.Valid {
			icon = "✅"
		}
		rows = append(rows, []adapter.InlineButton{{Text: icon + " " + a.Phone, Data: cbSelectAccount + a.Phone}})
	}
	rows = append(rows, []adapter.InlineButton{{Text: r.translator.T("btn_back"), Data: cbMainMenu}})
	return rows
}

func (r *RealTelegramBotAdapter) accountActionsRows(phone string) [][]adapter.InlineButton {
	return [][]adapter.InlineButton{
		{{Text: r.translator.T("btn_info"), Data: cbInfo + phone}},
		{{Text: r.translator.T("btn_codes"), Data: cbShowCodes + phone}},
		{{Text: r.translator.T("btn_export"), Data: cbExport + phone}},
		{{Text: r.translator.T("btn_delete"), Data: cbDelete + phone}},
		{{Text: r.translator.T("btn_back_to_list"), Data: cbMyAccounts}},
	}
}

func (r *RealTelegramBotAdapter) backRows(data string) [][]adapter.InlineButton {
	return [][]adapter.InlineButton{{{Text: r.translator.T("btn_back"), Data: data}}}
}
