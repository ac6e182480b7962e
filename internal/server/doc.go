// Package server は、静的ファイルサーバーの起動から停止までを管理します。
//
// このパッケージは、リスナーのバインド、ミドルウェアの組み立て、
// ブラウザの自動起動、コンテキストによるグレースフルシャットダウンを担当します。
//
// 責務:
//   - 固定ポートへのバインドとバインド失敗の報告（BindError）
//   - ginエンジンへのアクセスログ・リカバリ・静的ファイル配信の登録
//   - バインド確認後のブラウザ起動（失敗はログのみ）
//   - コンテキストのキャンセルを契機とした停止
//
// 仕様:
//   - 状態は NotStarted → Binding → Serving → Stopped の順に進む
//   - バインドに失敗した場合は Binding から直接 Stopped になる
//   - Stopped からはどの状態にも遷移しない
//   - 1リクエストのパニックは gin のリカバリで 500 に変換され、他のリクエストに影響しない
package server
